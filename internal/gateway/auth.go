package gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TOTPHeader carries the one-time code for admin routes.
const TOTPHeader = "X-TOTP-Code"

// TOTPGuard requires a valid time-based one-time code on admin routes.
type TOTPGuard struct {
	secret string
	now    func() time.Time
}

// NewTOTPGuard returns a guard for secret, or nil when secret is empty.
func NewTOTPGuard(secret string) *TOTPGuard {
	if secret == "" {
		return nil
	}
	return &TOTPGuard{secret: secret, now: time.Now}
}

// Valid reports whether code is accepted at the current time. One step of
// clock skew is tolerated either way.
func (g *TOTPGuard) Valid(code string) bool {
	if code == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, g.secret, g.now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// Wrap rejects requests without a valid code. A nil guard passes every
// request through.
func (g *TOTPGuard) Wrap(next http.Handler) http.Handler {
	if g == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Valid(r.Header.Get(TOTPHeader)) {
			slog.Warn("[gateway] rejected admin request", "path", r.URL.Path, "remote", r.RemoteAddr)
			writeError(w, http.StatusUnauthorized, "missing or invalid one-time code")
			return
		}
		next.ServeHTTP(w, r)
	})
}
