package models

import "time"

type Todo struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Priority    string     `json:"priority"`
	Completed   bool       `json:"completed"`
	DueDate     *time.Time `json:"dueDate"`
	Tags        []string   `json:"tags"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// PriorityRank orders priorities high to low.
var PriorityRank = map[string]int{"high": 3, "medium": 2, "low": 1}

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

type TodoStats struct {
	Total          int            `json:"total"`
	Completed      int            `json:"completed"`
	Pending        int            `json:"pending"`
	CompletionRate int            `json:"completionRate"`
	ByPriority     map[string]int `json:"byPriority"`
	Overdue        int            `json:"overdue"`
	TopTags        []TagCount     `json:"topTags"`
}
