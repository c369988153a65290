package handlers

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"taskboard/internal/middleware"
	"taskboard/internal/models"
	"taskboard/pkg/crypto"
	"taskboard/pkg/logger"
	"taskboard/pkg/token"
)

var validate = validator.New()

// IDTokenVerifier memverifikasi ID token dari identity provider dan
// mengembalikan subject (uid) di dalamnya.
type IDTokenVerifier interface {
	Verify(ctx context.Context, idToken string) (string, error)
}

// Auth menangani register, login lokal, login Google, dan logout.
type Auth struct {
	DB       *sql.DB
	Verifier IDTokenVerifier
	Secret   []byte
}

// setSessionCookie memasang session token sebagai cookie.
// Token hanya dibawa lewat cookie, tidak pernah lewat body JSON.
func setSessionCookie(c *fiber.Ctx, tokenString string) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.CookieName,
		Value:    tokenString,
		Path:     "/",
		Expires:  time.Now().Add(token.TTL),
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteNoneMode,
	})
}

func clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteNoneMode,
	})
}

// publicUser adalah proyeksi user yang boleh keluar lewat response.
func publicUser(user models.User) fiber.Map {
	m := fiber.Map{
		"id":       user.ID,
		"email":    user.Email,
		"userName": user.Name,
	}
	if user.AuthProvider == models.AuthProviderGoogle {
		m["authProvider"] = user.AuthProvider
		if user.ProfilePicture != nil {
			m["profilePicture"] = *user.ProfilePicture
		}
	}
	return m
}

func (h *Auth) Register(c *fiber.Ctx) error {
	// struct RegisterRequest menerima inputan dari user
	type RegisterRequest struct {
		UserName string `json:"userName" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=6"`
	}

	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in register", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Bad request",
		})
	}

	// Validasi dengan validator
	if err := validate.Struct(req); err != nil {
		logger.AuditLogger.Warn("Validation error during register", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Validation error",
			"errors":  err.Error(),
		})
	}

	// Pre-check email; unique constraint tetap menjaga saat race.
	var existingID string
	err := h.DB.QueryRow("SELECT id FROM users WHERE email = $1", req.Email).Scan(&existingID)
	if err == nil {
		logger.SecurityLogger.Warn("Duplicate email on register", zap.String("email", req.Email))
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "User already exists!",
		})
	}
	if err != sql.ErrNoRows {
		logger.ErrorLogger.Error("Error checking existing user", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "some error occured",
		})
	}

	hashedPassword, err := crypto.HashPassword(req.Password)
	if err != nil {
		logger.ErrorLogger.Error("Error hashing password", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "some error occured",
		})
	}

	userID := uuid.NewString()
	_, err = h.DB.Exec(
		"INSERT INTO users (id, name, email, password, auth_provider) VALUES ($1, $2, $3, $4, 'local')",
		userID, req.UserName, req.Email, hashedPassword,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			logger.SecurityLogger.Warn("Duplicate email on register", zap.String("email", req.Email))
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false,
				"message": "User already exists!",
			})
		}
		logger.ErrorLogger.Error("Error creating user", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "some error occured",
		})
	}

	logger.AuditLogger.Info("User registered successfully", zap.String("userID", userID))
	return c.JSON(fiber.Map{
		"success": true,
		"message": "successfully registered",
	})
}

func (h *Auth) Login(c *fiber.Ctx) error {
	type LoginRequest struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in login", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Bad request",
		})
	}

	if err := validate.Struct(req); err != nil {
		logger.AuditLogger.Warn("Validation error during login", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Validation error",
			"errors":  err.Error(),
		})
	}

	user, err := h.findUserByEmail(req.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			logger.SecurityLogger.Warn("Login for unknown email", zap.String("email", req.Email))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "User doesn't exist!",
			})
		}
		logger.ErrorLogger.Error("Error fetching user", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "some error occured",
		})
	}

	if !crypto.CheckPassword(user.Password, req.Password) {
		logger.SecurityLogger.Warn("Invalid password", zap.String("email", req.Email))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "Invalid Password. Try again!",
		})
	}

	tokenString, err := token.Sign(h.Secret, user)
	if err != nil {
		logger.ErrorLogger.Error("Error generating token", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "some error occured",
		})
	}

	setSessionCookie(c, tokenString)
	logger.AuditLogger.Info("Login success", zap.String("userID", user.ID))
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged in successfully",
		"user":    publicUser(user),
	})
}

func (h *Auth) GoogleLogin(c *fiber.Ctx) error {
	type GoogleLoginRequest struct {
		IDToken  string `json:"idToken" validate:"required"`
		UID      string `json:"uid" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
		Name     string `json:"name"`
		PhotoURL string `json:"photoURL"`
	}

	var req GoogleLoginRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in google login", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Bad request",
		})
	}

	if err := validate.Struct(req); err != nil {
		logger.AuditLogger.Warn("Validation error during google login", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Validation error",
			"errors":  err.Error(),
		})
	}

	if h.Verifier == nil {
		logger.ErrorLogger.Error("Google login requested but verifier is not configured")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Google authentication failed",
		})
	}

	// Subject dari token yang terverifikasi harus sama dengan uid kiriman.
	decodedUID, err := h.Verifier.Verify(c.Context(), req.IDToken)
	if err != nil || decodedUID != req.UID {
		logger.SecurityLogger.Warn("Google ID token rejected",
			zap.String("uid", req.UID), zap.Error(err))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "Invalid token",
		})
	}

	user, err := h.findUserByEmail(req.Email)
	switch {
	case err == sql.ErrNoRows:
		// User federated baru: password diisi sentinel, bukan hash.
		user = models.User{
			ID:           uuid.NewString(),
			Name:         req.Name,
			Email:        req.Email,
			Password:     models.GoogleAuthSentinel,
			AuthProvider: models.AuthProviderGoogle,
			FirebaseUID:  &req.UID,
		}
		if req.PhotoURL != "" {
			user.ProfilePicture = &req.PhotoURL
		}
		_, err = h.DB.Exec(
			"INSERT INTO users (id, name, email, password, firebase_uid, profile_picture, auth_provider) VALUES ($1, $2, $3, $4, $5, $6, $7)",
			user.ID, user.Name, user.Email, user.Password, user.FirebaseUID, user.ProfilePicture, user.AuthProvider,
		)
		if err != nil {
			logger.ErrorLogger.Error("Error creating google user", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "some error occured",
			})
		}
		logger.AuditLogger.Info("Google user created", zap.String("userID", user.ID))
	case err != nil:
		logger.ErrorLogger.Error("Error fetching user", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "some error occured",
		})
	case user.FirebaseUID == nil:
		// Akun lokal yang pertama kali login lewat Google: backfill
		// firebase_uid, provider, dan foto profil bila belum ada.
		_, err = h.DB.Exec(
			"UPDATE users SET firebase_uid = $1, auth_provider = $2, profile_picture = COALESCE(profile_picture, $3), updated_at = CURRENT_TIMESTAMP WHERE id = $4",
			req.UID, models.AuthProviderGoogle, nullableString(req.PhotoURL), user.ID,
		)
		if err != nil {
			logger.ErrorLogger.Error("Error backfilling google identity", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "some error occured",
			})
		}
		user.FirebaseUID = &req.UID
		user.AuthProvider = models.AuthProviderGoogle
		if user.ProfilePicture == nil && req.PhotoURL != "" {
			user.ProfilePicture = &req.PhotoURL
		}
	}

	tokenString, err := token.Sign(h.Secret, user)
	if err != nil {
		logger.ErrorLogger.Error("Error generating token", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "some error occured",
		})
	}

	setSessionCookie(c, tokenString)
	logger.AuditLogger.Info("Google login success", zap.String("userID", user.ID))
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged in successfully with Google",
		"user":    publicUser(user),
	})
}

func (h *Auth) Logout(c *fiber.Ctx) error {
	clearSessionCookie(c)
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out successfully!",
	})
}

// CheckAuth adalah probe session untuk client yang sudah login.
// Berada di belakang AuthGuard.
func (h *Auth) CheckAuth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Authenticated user!",
		"user": fiber.Map{
			"id":       c.Locals("userID"),
			"email":    c.Locals("email"),
			"userName": c.Locals("userName"),
		},
	})
}

func (h *Auth) findUserByEmail(email string) (models.User, error) {
	var user models.User
	var firebaseUID, profilePicture sql.NullString
	err := h.DB.QueryRow(
		"SELECT id, name, email, password, firebase_uid, profile_picture, auth_provider FROM users WHERE email = $1",
		email,
	).Scan(&user.ID, &user.Name, &user.Email, &user.Password, &firebaseUID, &profilePicture, &user.AuthProvider)
	if err != nil {
		return models.User{}, err
	}
	if firebaseUID.Valid {
		user.FirebaseUID = &firebaseUID.String
	}
	if profilePicture.Valid {
		user.ProfilePicture = &profilePicture.String
	}
	return user, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
