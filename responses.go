package main

import (
	"net/http"

	"github.com/go-chi/render"
)

// ErrResponse renders an error as json with a matching status code.
type ErrResponse struct {
	Err            error `json:"-"`
	HTTPStatusCode int   `json:"-"`

	StatusText string `json:"status"`
	ErrorText  string `json:"error,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func newErrResponse(err error, status int) render.Renderer {
	resp := &ErrResponse{
		Err:            err,
		HTTPStatusCode: status,
		StatusText:     http.StatusText(status),
	}
	if err != nil {
		resp.ErrorText = err.Error()
	}
	return resp
}

func ErrInvalidRequest(err error) render.Renderer {
	return newErrResponse(err, http.StatusBadRequest)
}

func ErrUnauthorized(err error) render.Renderer {
	return newErrResponse(err, http.StatusUnauthorized)
}

func ErrPermissionDenied(err error) render.Renderer {
	return newErrResponse(err, http.StatusForbidden)
}

func ErrRender(err error) render.Renderer {
	return newErrResponse(err, http.StatusInternalServerError)
}

func ErrNotFoundWith(err error) render.Renderer {
	return newErrResponse(err, http.StatusNotFound)
}

var ErrNotFound = &ErrResponse{HTTPStatusCode: http.StatusNotFound, StatusText: "Resource not found."}
