package models

import "time"

type Rating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

type Movie struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Director        string    `json:"director"`
	Year            int       `json:"year"`
	Genre           string    `json:"genre"`
	Copies          int       `json:"copies"`
	AvailableCopies int       `json:"availableCopies"`
	TimesRented     int       `json:"timesRented"`
	Cover           *string   `json:"cover"`
	Rating          Rating    `json:"rating"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Rented is how many copies are currently out.
func (m *Movie) Rented() int {
	return m.Copies - m.AvailableCopies
}
