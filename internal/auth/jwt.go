package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"chathub/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	// ErrUnauthenticated is returned when no credential is presented, or the
	// credential is not a parseable bearer token.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrInvalidCredential is returned when the token fails signature or
	// expiry checks, or does not resolve to a known user.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrAccountInactive is returned when the token resolves to a user whose
	// account has been deactivated.
	ErrAccountInactive = errors.New("account is deactivated")
)

type CustomClaims struct {
	UserID uuid.UUID `json:"user_id"`
	jwt.RegisteredClaims
}

// UserLookup resolves a user id to its stored record. Implemented by the
// user repository; kept narrow so the verifier can be tested without a
// database.
type UserLookup interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Verifier validates bearer credentials and resolves them to active users.
// It is invoked exactly once per connection, at handshake time.
type Verifier struct {
	secret []byte
	users  UserLookup
}

func NewVerifier(secret []byte, users UserLookup) *Verifier {
	return &Verifier{secret: secret, users: users}
}

// Verify parses and validates the bearer token, then resolves the embedded
// user id against the identity store. The returned user is immutable for
// the lifetime of the connection.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*models.User, error) {
	if tokenString == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := v.parseClaims(tokenString)
	if err != nil {
		log.Printf("[AUTH] Token rejected: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	user, err := v.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Printf("[AUTH] Token valid but user no longer exists: %s", claims.UserID)
			return nil, ErrInvalidCredential
		}
		return nil, fmt.Errorf("identity lookup failed: %w", err)
	}

	if !user.IsActive {
		log.Printf("[AUTH] Rejected deactivated account: %s", user.Username)
		return nil, ErrAccountInactive
	}

	return user, nil
}

func (v *Verifier) parseClaims(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, errors.New("token claims invalid")
	}
	return claims, nil
}

// SignToken mints an HS256 token for the given user id. Token issuance is
// owned by the external auth service; this helper exists for local tooling
// and tests.
func SignToken(secret []byte, userID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "chathub",
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
