package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// IdempotencyHeader names the client-chosen replay key.
const IdempotencyHeader = "Idempotency-Key"

const (
	replayTTL      = 24 * time.Hour
	orderReplayTTL = 7 * 24 * time.Hour
	inFlightTTL    = time.Minute
)

// ReplayStore persists captured responses. Set overwrites the in-flight marker.
type ReplayStore interface {
	pkgredis.IdempotencyStore
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type replayRoute struct {
	method   string
	template string
	ttl      time.Duration
}

// Mutating routes whose retries must not repeat side effects.
var replayRoutes = []replayRoute{
	{http.MethodPost, "/api/v1/auth/register", replayTTL},
	{http.MethodPost, "/api/v1/coupons", replayTTL},
	{http.MethodPut, "/api/v1/orders/{orderId}/pay", replayTTL},
	{http.MethodPut, "/api/v1/orders/{orderId}/deliver", replayTTL},
	{http.MethodPost, "/api/v1/orders/{cartId}", orderReplayTTL},
}

type replayRecord struct {
	Pending     bool   `json:"pending,omitempty"`
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency makes the routes in replayRoutes safe to retry. The first request with a given
// Idempotency-Key runs; later ones with the same body get the stored response. A retry that
// arrives while the first is still running gets 409. Server errors are not stored.
func Idempotency(store ReplayStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, guarded := replayWindow(r.Method, matchedPath(r))
			if !guarded || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if clientKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, IdempotencyHeader+" header required"))
				return
			}
			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			digest := sha256.Sum256(body)
			hash := hex.EncodeToString(digest[:])
			caller := "anonymous"
			if p, ok := PrincipalFrom(ctx); ok {
				caller = p.UserID.String()
			}
			key := store.IdempotencyKey(caller+"|"+r.Method+"|"+r.URL.Path, clientKey)

			marker, _ := json.Marshal(replayRecord{Pending: true, RequestHash: hash})
			reserved, err := store.SetNX(ctx, key, string(marker), inFlightTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
				return
			}
			if !reserved {
				replay(w, r, store, key, hash, logg)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			if capture.statusCode() >= http.StatusInternalServerError {
				if err := store.Del(ctx, key); err != nil && logg != nil {
					logg.Error(ctx, "release idempotency key", err)
				}
				return
			}
			record, _ := json.Marshal(replayRecord{
				RequestHash: hash,
				Status:      capture.statusCode(),
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
			})
			if err := store.Set(ctx, key, string(record), ttl); err != nil && logg != nil {
				logg.Error(ctx, "store idempotent response", err)
			}
		})
	}
}

func replay(w http.ResponseWriter, r *http.Request, store ReplayStore, key, hash string, logg *logger.Logger) {
	ctx := r.Context()
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) || (err == nil && raw == "") {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this idempotency key is still in progress"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
		return
	}

	var rec replayRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode idempotency record"))
		return
	}
	switch {
	case rec.RequestHash != hash:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case rec.Pending:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this idempotency key is still in progress"))
	default:
		if rec.ContentType != "" {
			w.Header().Set("Content-Type", rec.ContentType)
		}
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(rec.Status)
		_, _ = w.Write(rec.Body)
	}
}

// matchedPath prefers chi's route pattern. Sub-router middleware runs before the last
// segment is matched, so a pattern still ending in a wildcard falls back to the raw path.
func matchedPath(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" && !strings.HasSuffix(p, "*") {
			return p
		}
	}
	return r.URL.Path
}

func replayWindow(method, path string) (time.Duration, bool) {
	if path == "" {
		return 0, false
	}
	for _, route := range replayRoutes {
		if route.method == method && templateMatches(route.template, path) {
			return route.ttl, true
		}
	}
	return 0, false
}

// templateMatches compares segment by segment; {name} segments match any non-empty value.
func templateMatches(template, path string) bool {
	want := strings.Split(strings.Trim(template, "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")
	if len(want) != len(got) {
		return false
	}
	for i, seg := range want {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			if got[i] == "" {
				return false
			}
		} else if got[i] != seg {
			return false
		}
	}
	return true
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
