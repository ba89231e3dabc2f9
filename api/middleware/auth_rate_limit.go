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

	"github.com/angelmondragon/surplus-backend/api/responses"
	pkgerrors "github.com/angelmondragon/surplus-backend/pkg/errors"
	"github.com/angelmondragon/surplus-backend/pkg/logger"
)

// Credentials payloads are tiny; anything larger is not a login attempt.
const maxAuthBodyBytes = 64 << 10

// WindowLimiter is satisfied by the redis client's fixed window counter.
type WindowLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// AuthRateLimitPolicy throttles one auth endpoint per client IP and per
// submitted email. A zero limit disables that dimension.
type AuthRateLimitPolicy struct {
	Name       string
	Window     time.Duration
	IPLimit    int
	EmailLimit int
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	return AuthRateLimitPolicy{Name: name, Window: window, IPLimit: ipLimit, EmailLimit: emailLimit}
}

type limitCheck struct {
	dimension string
	subject   string
	limit     int
}

// checks lists the counters a request touches. Emails are hashed before they
// become part of a Redis key.
func (p AuthRateLimitPolicy) checks(ip, email string) []limitCheck {
	var out []limitCheck
	if p.IPLimit > 0 && ip != "" {
		out = append(out, limitCheck{"ip", ip, p.IPLimit})
	}
	if p.EmailLimit > 0 && email != "" {
		sum := sha256.Sum256([]byte(email))
		out = append(out, limitCheck{"email", hex.EncodeToString(sum[:]), p.EmailLimit})
	}
	return out
}

func (p AuthRateLimitPolicy) scope(c limitCheck) string {
	name := strings.ToLower(strings.TrimSpace(p.Name))
	if name == "" {
		name = "auth"
	}
	return name + ":" + c.dimension + ":" + c.subject
}

// AuthRateLimit rejects requests past a policy limit with 429 and a
// Retry-After of one window. If the limiter itself fails the request gets a
// 503 rather than being let through.
func AuthRateLimit(policy AuthRateLimitPolicy, limiter WindowLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	if policy.Window <= 0 || (policy.IPLimit <= 0 && policy.EmailLimit <= 0) || limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	retryAfter := strconv.Itoa(int(policy.Window.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			var email string
			if policy.EmailLimit > 0 {
				body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAuthBodyBytes))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				email = submittedEmail(body)
			}

			for _, c := range policy.checks(clientIP(r), email) {
				allowed, attempts, err := limiter.FixedWindowAllow(ctx, policy.scope(c), int64(c.limit), policy.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiter unavailable"))
					return
				}
				if !allowed {
					logg.Warn(logg.WithFields(ctx, map[string]any{
						"policy":    policy.Name,
						"dimension": c.dimension,
						"attempts":  attempts,
						"limit":     c.limit,
					}), "auth.rate_limited")
					w.Header().Set("Retry-After", retryAfter)
					responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// socket peer.
func clientIP(r *http.Request) string {
	if fwd, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(fwd) != "" {
		return strings.TrimSpace(fwd)
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return r.RemoteAddr
	}
	return host
}

func submittedEmail(body []byte) string {
	var creds struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &creds) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(creds.Email))
}
