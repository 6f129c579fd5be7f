package respond

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// PathID parses the {id} URL parameter.
func PathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid id", ErrBadRequest)
	}

	return id, nil
}

// QueryUUID returns nil when the parameter is absent.
func QueryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}

	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s", ErrBadRequest, name)
	}

	return &id, nil
}

func RequiredQueryUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := QueryUUID(r, name)
	if err != nil {
		return uuid.Nil, err
	}

	if id == nil {
		return uuid.Nil, fmt.Errorf("%w: %s is required", ErrBadRequest, name)
	}

	return *id, nil
}

func QueryBool(r *http.Request, name string) (*bool, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}

	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s", ErrBadRequest, name)
	}

	return &b, nil
}

// QueryInt returns 0 when the parameter is absent.
func QueryInt(r *http.Request, name string) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid %s", ErrBadRequest, name)
	}

	return n, nil
}

// QueryDate parses a YYYY-MM-DD parameter.
func QueryDate(r *http.Request, name string) (*time.Time, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}

	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s", ErrBadRequest, name)
	}

	return &t, nil
}
