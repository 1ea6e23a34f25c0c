package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/apperror"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/service"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/util"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/validation"
)

// Response represents a standard API response
type Response struct {
	Success    bool                `json:"success"`
	Data       interface{}         `json:"data"`
	Message    string              `json:"message,omitempty"`
	Total      *int                `json:"total,omitempty"`
	Pagination *service.Pagination `json:"pagination,omitempty"`
	CoverURL   string              `json:"coverUrl,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string              `json:"error"`
	Message string              `json:"message,omitempty"`
	Details []validation.Detail `json:"details,omitempty"`
	Path    string              `json:"path,omitempty"`
	Method  string              `json:"method,omitempty"`
	Stack   string              `json:"stack,omitempty"`
}

func successResponse(data interface{}, message string) Response {
	return Response{Success: true, Data: data, Message: message}
}

// api is what every resource handler needs to decode requests and answer.
type api struct {
	registry  *validation.Registry
	validator *validation.Validator
	logger    *zap.Logger
	maxJSON   int64
	// debug exposes internal error details on 5xx responses.
	debug bool
}

// APIOptions configures request decoding and error reporting.
type APIOptions struct {
	Registry     *validation.Registry
	Validator    *validation.Validator
	Logger       *zap.Logger
	MaxJSONBytes int64
	Debug        bool
}

func newAPI(opts APIOptions) *api {
	if opts.Validator == nil {
		opts.Validator = validation.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxJSONBytes <= 0 {
		opts.MaxJSONBytes = 10 * 1024
	}
	return &api{
		registry:  opts.Registry,
		validator: opts.Validator,
		logger:    opts.Logger,
		maxJSON:   opts.MaxJSONBytes,
		debug:     opts.Debug,
	}
}

func (a *api) respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	writeJSON(w, statusCode, payload)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		util.Error("Failed to encode JSON response", util.ErrorField(err))
	}
}

// respondWithError resolves err to its classified form and writes it.
func (a *api) respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperror.From(err)
	fields := []zap.Field{
		util.String("request_id", middleware.GetReqID(r.Context())),
		util.String("method", r.Method),
		util.String("path", r.URL.Path),
		util.Int("status", appErr.Status),
		util.String("kind", appErr.Kind.String()),
	}

	if appErr.Kind == apperror.KindValidation {
		status, body := validation.Classify(appErr.Failures)
		a.logger.Info("Request rejected by validation", append(fields, util.Strings("paths", appErr.Failures.Paths()))...)
		a.respondWithJSON(w, status, body)
		return
	}

	body := ErrorResponse{Error: appErr.Label, Message: appErr.Message}
	if appErr.Status >= http.StatusInternalServerError {
		a.logger.Error("Request failed", append(fields, util.ErrorField(err))...)
		body.Message = ""
		if a.debug {
			body.Message = err.Error()
			body.Stack = string(debug.Stack())
		}
	} else {
		a.logger.Warn("Request error", append(fields, util.String("error", appErr.Error()))...)
	}
	a.respondWithJSON(w, appErr.Status, body)
}

// bind validates the request against the schema registered for route. On
// failure the error response is already written and ok is false.
func (a *api) bind(w http.ResponseWriter, r *http.Request, route string) (validation.Normalized, bool) {
	schema := a.registry.MustLookup(route)
	raw := validation.Raw{Query: queryInput(r), Params: paramsInput(r)}

	if schema.Body != nil {
		body, err := a.readJSON(w, r)
		if err != nil {
			a.respondWithError(w, r, err)
			return validation.Normalized{}, false
		}
		raw.Body = body
	}

	norm, failures := a.validator.Validate(schema, raw)
	if len(failures) > 0 {
		a.respondWithError(w, r, apperror.Validation(failures))
		return validation.Normalized{}, false
	}
	return norm, true
}

func (a *api) readJSON(w http.ResponseWriter, r *http.Request) (any, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.maxJSON))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperror.Operational(http.StatusRequestEntityTooLarge, "Payload demasiado grande",
				fmt.Sprintf("El cuerpo de la solicitud no puede superar %d KB", a.maxJSON/1024), apperror.ErrTooLarge)
		}
		return nil, apperror.MalformedJSON(err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var body any
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, apperror.MalformedJSON(err)
	}
	return body, nil
}

// queryInput keeps the first value of every query key.
func queryInput(r *http.Request) map[string]any {
	out := make(map[string]any)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			out[key] = values[0]
		}
	}
	return out
}

func paramsInput(r *http.Request) map[string]any {
	out := make(map[string]any)
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return out
	}
	for i, key := range rctx.URLParams.Keys {
		if key == "*" || i >= len(rctx.URLParams.Values) {
			continue
		}
		out[key] = rctx.URLParams.Values[i]
	}
	return out
}

func stringField(v validation.Values, key string) service.Field[string] {
	if !v.Has(key) {
		return service.Field[string]{}
	}
	if v.IsNull(key) {
		return service.Null[string]()
	}
	s, _ := v.String(key)
	return service.Some(s)
}

func intField(v validation.Values, key string) service.Field[int] {
	n, ok := v.Int(key)
	if !ok {
		return service.Field[int]{}
	}
	return service.Some(n)
}

func boolField(v validation.Values, key string) service.Field[bool] {
	b, ok := v.Bool(key)
	if !ok {
		return service.Field[bool]{}
	}
	return service.Some(b)
}

func stringsField(v validation.Values, key string) service.Field[[]string] {
	items, ok := v.Strings(key)
	if !ok {
		return service.Field[[]string]{}
	}
	return service.Some(items)
}

func timeField(v validation.Values, key string) service.Field[time.Time] {
	if v.IsNull(key) {
		return service.Null[time.Time]()
	}
	t, ok := v.Time(key)
	if !ok {
		return service.Field[time.Time]{}
	}
	return service.Some(t.UTC())
}

// optionalBool is a query filter that is nil when absent.
func optionalBool(v validation.Values, key string) *bool {
	b, ok := v.Bool(key)
	if !ok {
		return nil
	}
	return &b
}

func pageOf(v validation.Values) service.Page {
	return service.Page{Page: v.IntOr("page", 1), Limit: v.IntOr("limit", 10)}
}
