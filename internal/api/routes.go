package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"taskboard/internal/api/handlers"
	"taskboard/internal/middleware"
	"taskboard/internal/ws"
)

// Deps membawa handler dan dependency yang di-inject dari main.
type Deps struct {
	Auth   *handlers.Auth
	Task   *handlers.Task
	Hub    *ws.Hub
	Secret []byte

	// UploadDir dilayani statis di /uploads.
	UploadDir string
}

func RegisterRoutes(app *fiber.App, deps Deps) {
	guard := middleware.AuthGuard(deps.Secret)

	api := app.Group("/api")

	// Auth
	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", deps.Auth.Register)
	authRoutes.Post("/login", deps.Auth.Login)
	authRoutes.Post("/google-login", deps.Auth.GoogleLogin)
	authRoutes.Post("/logout", deps.Auth.Logout)
	authRoutes.Get("/check-auth", guard, deps.Auth.CheckAuth)

	// Task
	taskRoutes := api.Group("/tasks", guard)
	taskRoutes.Get("/", deps.Task.List)
	taskRoutes.Post("/", deps.Task.Create)
	taskRoutes.Post("/clear-tasks", deps.Task.ClearAll)
	taskRoutes.Put("/:id", deps.Task.Update)
	taskRoutes.Delete("/:id", deps.Task.Delete)

	// Gambar task dilayani statis
	app.Static("/uploads", deps.UploadDir)

	// WebSocket event task per user
	if deps.Hub != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws", guard, websocket.New(func(conn *websocket.Conn) {
			userID, _ := conn.Locals("userID").(string)
			client := &ws.Client{UserID: userID, Conn: conn}
			deps.Hub.Register <- client
			defer func() {
				deps.Hub.Unregister <- client
			}()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					break
				}
			}
		}))
	}
}
