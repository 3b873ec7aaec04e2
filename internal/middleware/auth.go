package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pkordes/fleetops/internal/domain"
)

type ctxKey int

const (
	principalKey ctxKey = iota
	principalSlotKey
)

// Claims are the bearer-token claims the API understands. Subject comes from
// the registered "sub" claim.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenVerifier validates HS256 bearer tokens signed with a shared secret.
type TokenVerifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewTokenVerifier returns a verifier for tokens signed with secret.
func NewTokenVerifier(secret []byte) *TokenVerifier {
	return &TokenVerifier{
		secret: secret,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify parses token and returns the principal it names. Tokens without a
// subject or with a role outside the known set are rejected.
func (v *TokenVerifier) Verify(token string) (domain.Principal, error) {
	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return domain.Principal{}, fmt.Errorf("middleware.TokenVerifier.Verify: %w", err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return domain.Principal{}, errors.New("middleware.TokenVerifier.Verify: token has no subject")
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("middleware.TokenVerifier.Verify: %w", err)
	}
	return domain.Principal{Subject: claims.Subject, Role: role}, nil
}

// Authenticate returns a middleware that requires a valid bearer token and
// stores the resulting domain.Principal in the request context.
// Failures answer 401 and never reach the next handler.
func Authenticate(v *TokenVerifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}
			p, err := v.Verify(strings.TrimSpace(token))
			if err != nil {
				log.WarnContext(r.Context(), "token rejected", "error", err)
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}
			if slot, ok := r.Context().Value(principalSlotKey).(*principalSlot); ok {
				slot.set(p)
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireRole returns a middleware that answers 403 unless the authenticated
// principal holds one of roles. It must run after Authenticate.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
				return
			}
			if !slices.Contains(roles, p.Role) {
				writeError(w, http.StatusForbidden, "forbidden", "role "+string(p.Role)+" may not perform this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom returns the principal stored by Authenticate.
func PrincipalFrom(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey).(domain.Principal)
	return p, ok
}

type principalSlot struct {
	mu sync.Mutex
	p  *domain.Principal
}

func (s *principalSlot) set(p domain.Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p = &p
}

func (s *principalSlot) get() (domain.Principal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.p == nil {
		return domain.Principal{}, false
	}
	return *s.p, true
}

func withPrincipalSlot(ctx context.Context, s *principalSlot) context.Context {
	return context.WithValue(ctx, principalSlotKey, s)
}

// writeError writes the API's standard error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
