// Package responses writes the JSON envelopes every handler returns.
package responses

import (
	"context"
	"encoding/json"
	"net/http"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Success wraps a handler's payload.
type Success struct {
	Data any `json:"data"`
}

// Failure is the body of every error response.
type Failure struct {
	Error Problem `json:"error"`
}

type Problem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Success{Data: data})
}

func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError renders err by its code. Uncoded errors become CodeInternal with the generic
// public message. Server-side failures log at error level, client faults at warn.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	problem := Problem{Code: string(typed.Code()), Message: meta.PublicMessage}
	if meta.ShowMessage && typed.Message() != "" {
		problem.Message = typed.Message()
	}
	if meta.DetailsAllowed {
		problem.Details = typed.Details()
	}

	if logg != nil {
		logCtx := logg.WithFields(ctx, pkgerrors.LogFields(typed))
		if meta.HTTPStatus >= http.StatusInternalServerError {
			logg.Error(logCtx, "request failed", typed)
		} else {
			logg.Warn(logCtx, "request rejected")
		}
	}
	writeJSON(w, meta.HTTPStatus, Failure{Error: problem})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
