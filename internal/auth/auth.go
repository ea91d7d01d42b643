package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"workshop-chat-service/internal/models"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is the verified user attached to a connection. Both fields are
// required; a token missing either claim is refused.
type Identity struct {
	UserID int
	Role   models.Role
}

// Verifier validates bearer tokens issued by the platform's identity service.
type Verifier struct {
	secret []byte
}

// NewVerifier constructs a Verifier around the shared signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates a token and extracts the caller identity.
func (v *Verifier) Verify(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}

	userID, ok := claims["user_id"].(float64)
	if !ok || userID <= 0 {
		return Identity{}, ErrInvalidToken
	}
	roleClaim, ok := claims["role"].(string)
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	role, err := models.ParseRole(roleClaim)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}

	return Identity{UserID: int(userID), Role: role}, nil
}

// Sign issues a token for the identity. Used by tests and local tooling.
func (v *Verifier) Sign(identity Identity, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": identity.UserID,
		"role":    identity.Role.String(),
		"exp":     time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(v.secret)
}
