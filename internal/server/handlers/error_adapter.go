package handlers

import (
	"net/http"
	"sync/atomic"

	apperrors "github.com/bffagent/bffagent/internal/errors"
)

type errorResponder func(http.ResponseWriter, *http.Request, error)

var httpErrorResponder atomic.Value

// SetHTTPErrorResponder routes handler errors through responder; nil restores the default envelope writer.
func SetHTTPErrorResponder(responder func(http.ResponseWriter, *http.Request, error)) {
	if responder == nil {
		responder = apperrors.RespondWithError
	}
	httpErrorResponder.Store(errorResponder(responder))
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	if responder, ok := httpErrorResponder.Load().(errorResponder); ok {
		responder(w, r, err)
		return
	}
	apperrors.RespondWithError(w, r, err)
}
