package middleware

import (
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jokeworks/joker-api/internal/config"
)

// OptionalJWT verifies a bearer token when one is present and stores it in
// locals. A missing or invalid token makes the request anonymous instead of
// rejecting it; endpoints that require identity enforce that downstream.
// Credential issuance happens elsewhere; this only verifies the shared
// secret signature.
func OptionalJWT(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Anonymous caller: clear any half-parsed token and continue.
			c.Locals("user", nil)
			return c.Next()
		},
	})
}

// UserID extracts the authenticated user id from the verified JWT's sub
// claim. Returns nil for anonymous callers or malformed subjects.
func UserID(c *fiber.Ctx) *uuid.UUID {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return nil
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return nil
	}
	return &id
}
