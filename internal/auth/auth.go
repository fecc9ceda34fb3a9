// Package auth issues and verifies the bearer tokens of the API.
// Tokens are HS256 JWTs whose subject is the user's email; they are never
// stored and stop being accepted once their expiration passes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/catsapi/internal/logger"
	"github.com/patric-chuzhbe/catsapi/internal/models"
)

type userFinder interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Auth verifies credentials and manages JWTs.
type Auth struct {
	// db is the interface to the user data storage.
	db userFinder

	// signingSecretKey is the key used to sign and verify JWTs.
	signingSecretKey []byte

	// tokenTTL is added to the issue time to get the expiration.
	tokenTTL time.Duration

	now func() time.Time
}

// Claims represents the JWT claims used by the system.
type Claims struct {
	jwt.RegisteredClaims
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// SubjectKey is the context key under which the verified token subject is stored.
const SubjectKey ContextKey = "subject"

var ErrInvalidToken = errors.New("invalid or expired token")

// Option customizes Auth.
type Option func(*Auth)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Auth) {
		a.now = now
	}
}

// New creates Auth. The secret is shared by every token of the process.
func New(db userFinder, signingSecretKey []byte, tokenTTL time.Duration, options ...Option) *Auth {
	a := &Auth{
		db:               db,
		signingSecretKey: signingSecretKey,
		tokenTTL:         tokenTTL,
		now:              time.Now,
	}
	for _, option := range options {
		option(a)
	}

	return a
}

// Login checks the password of the user with the given email and returns a
// signed access token. It fails with models.ErrNotFound for an unknown email
// and with models.ErrUnauthorized for a wrong password.
func (a *Auth) Login(ctx context.Context, email, password string) (string, error) {
	usr, err := a.db.FindUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	if !CheckPassword(usr.Hash, password) {
		return "", models.ErrUnauthorized
	}

	issuedAt := a.now().Truncate(time.Second)

	return a.BuildJWTString(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   usr.Email,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(a.tokenTTL)),
		},
	})
}

// BuildJWTString signs the claims with HS256.
func (a *Auth) BuildJWTString(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, *claims)

	tokenString, err := token.SignedString(a.signingSecretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies the signature, the algorithm and the expiration.
func (a *Auth) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	token, err := parser.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.signingSecretKey, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.ExpiresAt == nil || !claims.ExpiresAt.After(a.now()) {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// RequireBearerToken is an HTTP middleware rejecting requests without a valid
// "Authorization: Bearer <token>" header. The token subject is put into the
// request context under SubjectKey.
func (a *Auth) RequireBearerToken(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		tokenString, ok := bearerToken(request)
		if !ok {
			writeUnauthorized(response, "missing bearer token")
			return
		}

		claims, err := a.ParseToken(tokenString)
		if err != nil {
			logger.Log.Debugln("Error calling the `a.ParseToken()`: ", zap.Error(err))
			writeUnauthorized(response, "invalid token")
			return
		}

		ctx := context.WithValue(request.Context(), SubjectKey, claims.Subject)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// SubjectFromContext returns the subject stored by RequireBearerToken.
func SubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(SubjectKey).(string)
	return subject, ok && subject != ""
}

// HashPassword hashes a password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPassword compares in constant time.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func bearerToken(request *http.Request) (string, bool) {
	header := request.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)

	return token, token != ""
}

func writeUnauthorized(response http.ResponseWriter, message string) {
	response.Header().Set("Content-Type", "application/json")
	response.Header().Set("WWW-Authenticate", `Bearer realm=""`)
	response.WriteHeader(http.StatusUnauthorized)
	_, _ = fmt.Fprintf(response, `{"status":%q,"message":%q}`, models.StatusError, message)
}
