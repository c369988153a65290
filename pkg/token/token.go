package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"taskboard/internal/models"
)

// TTL adalah masa berlaku session token (dan cookie yang membawanya).
const TTL = 60 * time.Minute

var ErrInvalid = errors.New("invalid token")

// Claims adalah isi session token.
type Claims struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	UserName    string `json:"userName"`
	FirebaseUID string `json:"firebaseUid,omitempty"`
	jwt.RegisteredClaims
}

// Sign membuat session token JWT (HS256) untuk user dengan expiry TTL.
func Sign(secret []byte, user models.User) (string, error) {
	claims := Claims{
		ID:       user.ID,
		Email:    user.Email,
		UserName: user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(TTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	if user.FirebaseUID != nil {
		claims.FirebaseUID = *user.FirebaseUID
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Parse memverifikasi signature dan expiry, lalu mengembalikan claims.
func Parse(secret []byte, tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalid
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalid
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.ID == "" {
		return nil, ErrInvalid
	}
	return claims, nil
}
