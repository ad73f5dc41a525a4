package auth

import (
	"context"

	"github.com/dgrijalva/jwt-go"

	"github.com/dxaginfo/fan-meet-greet-manager-2025/internal/domain"
)

type claims struct {
	Role string `json:"role"`
	jwt.StandardClaims
}

// JWTVerifier validates HMAC-signed bearer tokens issued by the auth
// service. Subject carries the user id; a missing role claim defaults
// to fan.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Authenticate(_ context.Context, credential string) (Identity, error) {
	var c claims
	token, err := jwt.ParseWithClaims(credential, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrUnauthenticated
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, domain.ErrUnauthenticated
	}
	if c.Subject == "" {
		return Identity{}, domain.ErrUnauthenticated
	}

	role := domain.Role(c.Role)
	switch role {
	case domain.RoleFan, domain.RoleOrganizer, domain.RoleAdmin:
	case "":
		role = domain.RoleFan
	default:
		return Identity{}, domain.ErrUnauthenticated
	}

	return Identity{UserID: c.Subject, Role: role}, nil
}
