// internal/auth/auth.go
//
// Seat tokens and room passwords.
//   - A seat token is an HS256 JWT naming one seat of one game. It is handed
//     out in joinedGame and is the only way back into a seat after a
//     disconnect, and the only credential the REST hand endpoint accepts.
//   - Room passwords are stored as bcrypt hashes.

package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken  = errors.New("invalid seat token")
	ErrWrongPassword = errors.New("wrong room password")
)

// SeatClaims identify a player's seat.
type SeatClaims struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies seat tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an Issuer signing with secret; tokens live for ttl.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for the seat.
func (i *Issuer) Issue(gameID, playerID, name string) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SeatClaims{
		GameID:   gameID,
		PlayerID: playerID,
		Name:     name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	ss, err := token.SignedString(i.secret)
	return ss, exp, err
}

// Parse verifies a token and returns its claims.
func (i *Issuer) Parse(tokenStr string) (SeatClaims, error) {
	var c SeatClaims
	token, err := jwt.ParseWithClaims(tokenStr, &c, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return SeatClaims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.GameID == "" || c.PlayerID == "" {
		return SeatClaims{}, ErrInvalidToken
	}
	return c, nil
}

// Bearer extracts the token from "Authorization: Bearer <token>".
func Bearer(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	return ""
}

// HashPassword hashes a room password. An empty password means an open room.
func HashPassword(pw string) (string, error) {
	if pw == "" {
		return "", nil
	}
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

// CheckPassword accepts anything for an open room.
func CheckPassword(hash, pw string) error {
	if hash == "" {
		return nil
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) != nil {
		return ErrWrongPassword
	}
	return nil
}
