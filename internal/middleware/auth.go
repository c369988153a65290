package middleware

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"taskboard/pkg/logger"
	"taskboard/pkg/token"
)

// CookieName adalah nama cookie yang membawa session token.
const CookieName = "token"

// AuthGuard membaca session token dari cookie dan menolak request tanpa
// identitas yang valid. Claims hasil decode disimpan di locals.
func AuthGuard(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cookie := c.Cookies(CookieName)
		if cookie == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Unauthorised user!",
			})
		}

		claims, err := token.Parse(secret, cookie)
		if err != nil {
			logger.SecurityLogger.Warn("Invalid session token", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Unauthorised user!",
			})
		}

		c.Locals("userID", claims.ID)
		c.Locals("email", claims.Email)
		c.Locals("userName", claims.UserName)
		return c.Next()
	}
}
