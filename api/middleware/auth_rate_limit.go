package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type windowCounter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// AuthThrottle limits one auth endpoint per client IP and per submitted email.
// A zero limit disables that counter; a zero Window disables both.
type AuthThrottle struct {
	Name     string
	Window   time.Duration
	PerIP    int
	PerEmail int
}

type throttleCheck struct {
	kind  string
	id    string
	limit int
}

// AuthRateLimit rejects requests over either counter with 429 and a Retry-After of one window.
// The email counter keys on a hash of the normalized address, never the address itself.
func AuthRateLimit(t AuthThrottle, counter windowCounter, logg *logger.Logger) func(http.Handler) http.Handler {
	name := strings.ToLower(strings.TrimSpace(t.Name))
	if name == "" {
		name = "auth"
	}
	return func(next http.Handler) http.Handler {
		if counter == nil || t.Window <= 0 || (t.PerIP <= 0 && t.PerEmail <= 0) {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var checks []throttleCheck
			if t.PerIP > 0 {
				if ip := clientIP(r); ip != "" {
					checks = append(checks, throttleCheck{"ip", ip, t.PerIP})
				}
			}
			if t.PerEmail > 0 {
				body, err := io.ReadAll(r.Body)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				if digest := emailDigest(body); digest != "" {
					checks = append(checks, throttleCheck{"email", digest, t.PerEmail})
				}
			}

			for _, c := range checks {
				ok, hits, err := counter.FixedWindowAllow(ctx, c.kind+":"+name+":"+c.id, int64(c.limit), t.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiter unavailable"))
					return
				}
				if ok {
					continue
				}
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{
						"policy":   name,
						"scope":    c.kind,
						"attempts": hits,
						"limit":    c.limit,
					}), "auth attempt throttled")
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(t.Window.Seconds())))
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP trusts the first X-Forwarded-For hop, then X-Real-IP, then the socket peer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func emailDigest(body []byte) string {
	var form struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &form) != nil {
		return ""
	}
	email := strings.ToLower(strings.TrimSpace(form.Email))
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])
}
