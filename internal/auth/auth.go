package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/abrezinsky/munreg/internal/logger"
)

const (
	// DefaultTokenExpiry is how long minted development tokens stay valid
	DefaultTokenExpiry = 24 * time.Hour

	bearerPrefix    = "Bearer "
	queryTokenParam = "access_token"
)

// Claims are the bearer token claims. Subject is the delegate id.
type Claims struct {
	Email string `json:"email"`
	Admin bool   `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller
type Identity struct {
	ID    string
	Email string
	Admin bool
}

// Auth verifies bearer tokens and decides who is an admin
type Auth struct {
	signingKey  []byte
	issuer      string
	adminEmails map[string]bool
	log         logger.Logger
}

// New creates a new Auth instance. Tokens are HS256 signed with secret.
// A non-empty issuer is enforced on verification and stamped on minted tokens.
func New(log logger.Logger, secret, issuer string, adminEmails []string) *Auth {
	admins := make(map[string]bool, len(adminEmails))
	for _, email := range adminEmails {
		if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
			admins[email] = true
		}
	}
	return &Auth{signingKey: []byte(secret), issuer: issuer, adminEmails: admins, log: log}
}

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
)

// Mint signs a token for subject. Used by the token command and tests.
func (a *Auth) Mint(subject, email string, admin bool, expiresIn time.Duration) (string, error) {
	if expiresIn <= 0 {
		expiresIn = DefaultTokenExpiry
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: email,
		Admin: admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(a.signingKey)
}

// Verify parses and checks a token and returns the caller identity
func (a *Auth) Verify(tokenString string) (*Identity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return a.signingKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &Identity{
		ID:    claims.Subject,
		Email: claims.Email,
		Admin: claims.Admin || a.adminEmails[strings.ToLower(claims.Email)],
	}, nil
}

// TokenFromRequest extracts the bearer token from the Authorization
// header, falling back to the access_token query parameter for browsers
// opening a websocket.
func TokenFromRequest(r *http.Request) (string, error) {
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix); ok && after != "" {
		return after, nil
	}
	if token := r.URL.Query().Get(queryTokenParam); token != "" {
		return token, nil
	}
	return "", ErrMissingToken
}

type contextKeyIdentity struct{}

// WithIdentity stores id in ctx
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKeyIdentity{}, id)
}

// FromContext returns the authenticated identity, if any
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(contextKeyIdentity{}).(*Identity)
	return id, ok && id != nil
}

// RequireAuthAPI middleware for API endpoints (returns 401)
func (a *Auth) RequireAuthAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := TokenFromRequest(r)
		if err != nil {
			writeUnauthorized(w, "Unauthorized - missing bearer token")
			return
		}
		id, err := a.Verify(token)
		if err != nil {
			a.log.Warn("unauthorized access - invalid token", "path", r.URL.Path, logger.KeyError, err)
			writeUnauthorized(w, "Unauthorized - invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// RequireAdmin middleware rejects authenticated non-admins (returns 403).
// It must run after RequireAuthAPI.
func (a *Auth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		if !ok {
			writeUnauthorized(w, "Unauthorized - missing bearer token")
			return
		}
		if !id.Admin {
			a.log.Warn("forbidden - admin required", "path", r.URL.Path, logger.KeyDelegateID, id.ID)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"code":"FORBIDDEN","error":"Forbidden - admin access required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"code":"UNAUTHORIZED","error":"` + msg + `"}`))
}
