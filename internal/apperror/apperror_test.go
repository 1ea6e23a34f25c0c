package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/validation"
)

func TestFrom(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		kind   Kind
		status int
	}{
		{"classified passes through", Conflict("No hay copias disponibles para alquilar"), KindOperational, http.StatusConflict},
		{"wrapped classified", fmt.Errorf("rent: %w", NotFound("Película no encontrada")), KindNotFound, http.StatusNotFound},
		{"bare not found sentinel", fmt.Errorf("get movie: %w", ErrNotFound), KindNotFound, http.StatusNotFound},
		{"bare duplicate sentinel", ErrDuplicate, KindOperational, http.StatusConflict},
		{"unknown error", errors.New("connection refused"), KindUnexpected, http.StatusInternalServerError},
		{"payload too large", PayloadTooLarge("max 5MB"), KindOperational, http.StatusRequestEntityTooLarge},
		{"unsupported media", UnsupportedMediaType("solo imágenes"), KindOperational, http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := From(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.status, got.Status)
		})
	}

	assert.Nil(t, From(nil))
}

func TestValidationUsesClassifier(t *testing.T) {
	business := validation.Failures{{Section: validation.SectionBody, Path: "tags", Code: validation.CodeDuplicateValue}}
	assert.Equal(t, http.StatusUnprocessableEntity, Validation(business).Status)

	query := validation.Failures{{Section: validation.SectionQuery, Path: "page", Code: validation.CodeOutOfRange}}
	assert.Equal(t, http.StatusBadRequest, From(query).Status)
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("service: %w", Duplicate("email"))
	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.True(t, IsNotFound(NotFound("x")))
	assert.False(t, IsNotFound(Conflict("x")))

	malformed := MalformedJSON(errors.New("unexpected EOF"))
	assert.True(t, errors.Is(malformed, ErrMalformed))
	assert.Contains(t, malformed.Error(), "unexpected EOF")
}
