package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"kmp.co.th/assistant-backend/internal/config"
)

// Identity is what the ERP host asserts about the caller. Tokens are
// minted by the host application with the shared secret; this service
// only validates them.
type Identity struct {
	User  string
	Admin bool
}

// GenerateToken mints an identity token. Used by the ERP host
// integration and by tests; the service itself never issues tokens to
// end users.
func GenerateToken(user string, admin bool) (string, error) {
	claims := jwt.MapClaims{
		"sub":   user,
		"admin": admin,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(time.Hour * 24).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.JWTSecret))
}

func ValidateToken(tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.AppConfig.JWTSecret), nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	admin, _ := claims["admin"].(bool)
	return &Identity{User: sub, Admin: admin}, nil
}
