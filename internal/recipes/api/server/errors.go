package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Leopold1975/recipes_control/internal/pkg/validate"
	"github.com/Leopold1975/recipes_control/internal/recipes/api/oapi"
	"github.com/Leopold1975/recipes_control/internal/recipes/services/authservice"
	"github.com/Leopold1975/recipes_control/internal/recipes/services/catalogservice"
	"github.com/Leopold1975/recipes_control/internal/recipes/services/recipeservice"
)

var (
	errMalformedBody   = errors.New("malformed request body")
	errTooManyRequests = errors.New("request was throttled")
	errTooLarge        = errors.New("request body too large")
)

type Error struct {
	Err    string          `json:"error"`
	Fields validate.Errors `json:"fields,omitempty"`
}

func (se Error) ToJSON() []byte {
	b, err := json.Marshal(se)
	if err != nil {
		se.Err = err.Error()
		se.Fields = nil

		b, err := json.Marshal(se)
		if err != nil {
			return []byte(`{"error": "marshal error"}`)
		}

		return b
	}

	return b
}

// errorStatus maps service errors onto HTTP codes.
func errorStatus(err error) int {
	var (
		ve validate.Errors
		pe *oapi.InvalidParamFormatError
		me *http.MaxBytesError
	)

	switch {
	case errors.As(err, &ve), errors.As(err, &pe), errors.Is(err, errMalformedBody),
		errors.Is(err, authservice.ErrInvalidCredentials):
		return http.StatusBadRequest
	case errors.Is(err, authservice.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, catalogservice.ErrNotFound), errors.Is(err, recipeservice.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errTooLarge), errors.As(err, &me):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errTooManyRequests):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with the status it maps to. Internal errors are logged and
// not shown to the client.
func (s *Server) fail(w http.ResponseWriter, err error) {
	code := errorStatus(err)

	if code == http.StatusInternalServerError {
		s.lg.Errorf("internal error: %s", err.Error())
		handleError(w, errors.New(http.StatusText(code)), code) //nolint:goerr113

		return
	}

	handleError(w, err, code)
}

func (s *Server) paramError(w http.ResponseWriter, _ *http.Request, err error) {
	handleError(w, err, http.StatusBadRequest)
}

func handleError(w http.ResponseWriter, err error, code int) {
	e := Error{Err: err.Error()}

	var ve validate.Errors

	switch {
	case errors.As(err, &ve):
		e = Error{Err: "validation error", Fields: ve}
	case errors.Is(err, authservice.ErrInvalidCredentials):
		e.Fields = validate.Errors{"non_field_errors": {authservice.ErrInvalidCredentials.Error()}}
	}

	if code == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Token")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(e.ToJSON()) //nolint:errcheck
}
