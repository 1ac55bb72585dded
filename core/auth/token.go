// Package auth issues and verifies the signed bearer tokens carried by API requests.
package auth

import (
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/sistemanotas/notas/core"
	"github.com/sistemanotas/notas/core/user"
)

var (
	ErrInvalidToken = errors.New("token inválido")
	ErrExpiredToken = errors.New("token expirado")
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	ID    int       `json:"id"`
	Role  user.Role `json:"role"`
	Email string    `json:"email,omitempty"`
}

// Identity is the verified caller behind a token.
type Identity struct {
	UserID int
	Role   user.Role
	Email  string
}

type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewTokenService(conf *core.Config) *TokenService {
	return &TokenService{
		secret: []byte(conf.SecretKey),
		issuer: conf.AppName,
		ttl:    conf.Server.JWTExpirationDelta,
	}
}

// Issue generates a signed HS256 token for the user.
func (s *TokenService) Issue(userID int, role user.Role, email string) (string, error) {
	now := time.Now()
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    s.issuer,
			Subject:   strconv.Itoa(userID),
			ExpiresAt: now.Add(s.ttl).Unix(),
			IssuedAt:  now.Unix(),
		},
		ID:    userID,
		Role:  role,
		Email: email,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// Verify parses and validates a token string.
func (s *TokenService) Verify(tokenStr string) (Identity, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if ve, ok := err.(*jwt.ValidationError); ok && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return Identity{}, ErrExpiredToken
		}
		return Identity{}, ErrInvalidToken
	}
	if claims.ID <= 0 || !claims.Role.IsValid() {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: claims.ID, Role: claims.Role, Email: claims.Email}, nil
}
