package web

import (
	"fmt"
	"strings"

	"github.com/chorushq/chorus/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
)

// AuthClaims is what the identity provider signs for us. The subject is
// the account name; nick and avatar ride along so profiles stay fresh
// without a second lookup.
type AuthClaims struct {
	Nick   string `json:"nick"`
	Avatar string `json:"avatar"`
	jwt.RegisteredClaims
}

func ParseAuthToken(tk string) (AuthClaims, error) {
	var claims AuthClaims
	token, err := jwt.ParseWithClaims(tk, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Method)
		}
		return []byte(viper.GetString("security.auth_secret")), nil
	})
	if err != nil {
		return claims, err
	}
	if !token.Valid {
		return claims, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// AuthMiddleware runs on every request but never blocks one. It pulls the
// token from the Authorization header or the tk query fallback, refreshes
// the local account mirror and parks it in locals for the handlers.
func AuthMiddleware(c *fiber.Ctx) error {
	tk := c.Query("tk")
	if len(tk) == 0 {
		auth := c.Get(fiber.HeaderAuthorization)
		if strings.HasPrefix(auth, "Bearer ") {
			tk = strings.TrimPrefix(auth, "Bearer ")
		}
	}

	if len(tk) > 0 {
		if claims, err := ParseAuthToken(tk); err == nil && len(claims.Subject) > 0 {
			if account, err := services.UpsertAccount(claims.Subject, claims.Nick, claims.Avatar); err == nil {
				c.Locals("user", account)
			}
		}
	}

	return c.Next()
}
