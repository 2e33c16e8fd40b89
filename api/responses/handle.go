package responses

import (
	"net/http"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Handler computes an endpoint's payload. A nil payload with a nil error answers 204.
type Handler func(r *http.Request) (any, error)

// Handle renders fn's payload with status, or its error through WriteError.
func Handle(logg *logger.Logger, status int, fn Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := fn(r)
		switch {
		case err != nil:
			WriteError(r.Context(), logg, w, err)
		case payload == nil:
			WriteNoContent(w)
		default:
			WriteSuccessStatus(w, status, payload)
		}
	}
}

// Unavailable reports an endpoint whose backing service was never wired.
func Unavailable(service string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, service+" unavailable")
}
