package validation

import "net/http"

const (
	ErrorLabel   = "Error de validación"
	ErrorMessage = "Los datos proporcionados no son válidos"
)

// Detail is one path/message pair of a validation error response.
type Detail struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ErrorBody is the JSON body sent for a rejected request.
type ErrorBody struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Details []Detail `json:"details"`
}

// malformed are the codes that make a failure a client-input defect rather
// than a business-rule violation.
var malformed = map[Code]bool{
	CodeInvalidType:     true,
	CodeInvalidFormat:   true,
	CodeInvalidEnum:     true,
	CodeMissingRequired: true,
}

// StatusFor returns 400 when any failure is in the query or params section
// or carries a malformed-input code, and 422 otherwise.
func StatusFor(failures Failures) int {
	for _, f := range failures {
		if f.Section == SectionQuery || f.Section == SectionParams || malformed[f.Code] {
			return http.StatusBadRequest
		}
	}
	if len(failures) == 0 {
		return http.StatusBadRequest
	}
	return http.StatusUnprocessableEntity
}

// Classify maps failures to a status code and the response body. Details
// keep discovery order.
func Classify(failures Failures) (int, ErrorBody) {
	details := make([]Detail, 0, len(failures))
	for _, f := range failures {
		details = append(details, Detail{Path: f.Path, Message: f.Message})
	}
	return StatusFor(failures), ErrorBody{
		Error:   ErrorLabel,
		Message: ErrorMessage,
		Details: details,
	}
}
