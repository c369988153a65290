package handlers_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/models"
	"taskboard/pkg/crypto"
	"taskboard/pkg/token"
)

const (
	queryUserByEmail  = "SELECT id, name, email, password, firebase_uid, profile_picture, auth_provider FROM users WHERE email = $1"
	queryUserIDCheck  = "SELECT id FROM users WHERE email = $1"
	insertLocalUser   = "INSERT INTO users (id, name, email, password, auth_provider) VALUES ($1, $2, $3, $4, 'local')"
	insertGoogleUser  = "INSERT INTO users (id, name, email, password, firebase_uid, profile_picture, auth_provider) VALUES ($1, $2, $3, $4, $5, $6, $7)"
	backfillGoogleUID = "UPDATE users SET firebase_uid = $1, auth_provider = $2, profile_picture = COALESCE(profile_picture, $3), updated_at = CURRENT_TIMESTAMP WHERE id = $4"
)

func postJSON(t *testing.T, target string, body interface{}) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return result
}

func userRow(user models.User) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "name", "email", "password", "firebase_uid", "profile_picture", "auth_provider"})
	var firebaseUID, profilePicture interface{}
	if user.FirebaseUID != nil {
		firebaseUID = *user.FirebaseUID
	}
	if user.ProfilePicture != nil {
		profilePicture = *user.ProfilePicture
	}
	return rows.AddRow(user.ID, user.Name, user.Email, user.Password, firebaseUID, profilePicture, user.AuthProvider)
}

func TestRegisterSuccess(t *testing.T) {
	app, mock := newTestApp(t, nil)

	mock.ExpectQuery(regexp.QuoteMeta(queryUserIDCheck)).
		WithArgs("new@example.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta(insertLocalUser)).
		WithArgs(sqlmock.AnyArg(), "newuser", "new@example.com", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := postJSON(t, "/api/auth/register", map[string]string{
		"userName": "newuser",
		"email":    "new@example.com",
		"password": "secret123",
	})
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	result := decodeBody(t, resp)
	assert.Equal(t, true, result["success"])
	assert.Equal(t, "successfully registered", result["message"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	app, mock := newTestApp(t, nil)

	// Email sudah ada: tidak boleh ada INSERT kedua.
	mock.ExpectQuery(regexp.QuoteMeta(queryUserIDCheck)).
		WithArgs("dup@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("existing-id"))

	req := postJSON(t, "/api/auth/register", map[string]string{
		"userName": "dupuser",
		"email":    "dup@example.com",
		"password": "secret123",
	})
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	result := decodeBody(t, resp)
	assert.Equal(t, false, result["success"])
	assert.Equal(t, "User already exists!", result["message"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterValidation(t *testing.T) {
	app, _ := newTestApp(t, nil)

	req := postJSON(t, "/api/auth/register", map[string]string{
		"userName": "shorty",
		"email":    "not-an-email",
		"password": "123",
	})
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	result := decodeBody(t, resp)
	assert.Equal(t, false, result["success"])
}

func TestLoginUnknownUser(t *testing.T) {
	app, mock := newTestApp(t, nil)

	mock.ExpectQuery(regexp.QuoteMeta(queryUserByEmail)).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	req := postJSON(t, "/api/auth/login", map[string]string{
		"email":    "ghost@example.com",
		"password": "whatever",
	})
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	result := decodeBody(t, resp)
	assert.Equal(t, false, result["success"])
	assert.Equal(t, "User doesn't exist!", result["message"])
	assert.Nil(t, findCookie(resp, "token"))
}

func TestLoginWrongPassword(t *testing.T) {
	app, mock := newTestApp(t, nil)

	hashed, err := crypto.HashPassword("right-password")
	require.NoError(t, err)
	mock.ExpectQuery(regexp.QuoteMeta(queryUserByEmail)).
		WithArgs("user@example.com").
		WillReturnRows(userRow(models.User{
			ID: "user-1", Name: "User", Email: "user@example.com",
			Password: hashed, AuthProvider: models.AuthProviderLocal,
		}))

	req := postJSON(t, "/api/auth/login", map[string]string{
		"email":    "user@example.com",
		"password": "wrong-password",
	})
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	result := decodeBody(t, resp)
	assert.Equal(t, false, result["success"])
	assert.Equal(t, "Invalid Password. Try again!", result["message"])
	// Cookie session tidak boleh terpasang pada login gagal.
	assert.Nil(t, findCookie(resp, "token"))
}

func TestLoginSuccessSetsCookie(t *testing.T) {
	app, mock := newTestApp(t, nil)

	hashed, err := crypto.HashPassword("secret123")
	require.NoError(t, err)
	mock.ExpectQuery(regexp.QuoteMeta(queryUserByEmail)).
		WithArgs("user@example.com").
		WillReturnRows(userRow(models.User{
			ID: "user-1", Name: "User One", Email: "user@example.com",
			Password: hashed, AuthProvider: models.AuthProviderLocal,
		}))

	req := postJSON(t, "/api/auth/login", map[string]string{
		"email":    "user@example.com",
		"password": "secret123",
	})
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	result := decodeBody(t, resp)
	assert.Equal(t, true, result["success"])

	user, ok := result["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "user-1", user["id"])
	assert.Equal(t, "user@example.com", user["email"])
	assert.Equal(t, "User One", user["userName"])

	// Token hanya lewat cookie, tidak pernah di body.
	assert.NotContains(t, result, "token")

	cookie := findCookie(resp, "token")
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)

	claims, err := token.Parse(testSecret, cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.ID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "User One", claims.UserName)
}

func TestGoogleLoginCreatesFederatedUser(t *testing.T) {
	app, mock := newTestApp(t, stubVerifier{uid: "firebase-uid-1"})

	mock.ExpectQuery(regexp.QuoteMeta(queryUserByEmail)).
		WithArgs("gmail@example.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta(insertGoogleUser)).
		WithArgs(sqlmock.AnyArg(), "G User", "gmail@example.com", models.GoogleAuthSentinel,
			"firebase-uid-1", "https://photo.example/p.png", models.AuthProviderGoogle).
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := postJSON(t, "/api/auth/google-login", map[string]string{
		"idToken":  "valid-id-token",
		"uid":      "firebase-uid-1",
		"email":    "gmail@example.com",
		"name":     "G User",
		"photoURL": "https://photo.example/p.png",
	})
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	raw := new(bytes.Buffer)
	_, err = raw.ReadFrom(resp.Body)
	require.NoError(t, err)
	// Sentinel password tidak boleh bocor lewat response mana pun.
	assert.NotContains(t, raw.String(), models.GoogleAuthSentinel)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(raw.Bytes(), &result))
	assert.Equal(t, true, result["success"])
	user, ok := result["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, models.AuthProviderGoogle, user["authProvider"])

	require.NotNil(t, findCookie(resp, "token"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGoogleLoginBackfillsLocalUser(t *testing.T) {
	app, mock := newTestApp(t, stubVerifier{uid: "firebase-uid-2"})

	hashed, err := crypto.HashPassword("localpass")
	require.NoError(t, err)
	mock.ExpectQuery(regexp.QuoteMeta(queryUserByEmail)).
		WithArgs("local@example.com").
		WillReturnRows(userRow(models.User{
			ID: "user-2", Name: "Local", Email: "local@example.com",
			Password: hashed, AuthProvider: models.AuthProviderLocal,
		}))
	mock.ExpectExec(regexp.QuoteMeta(backfillGoogleUID)).
		WithArgs("firebase-uid-2", models.AuthProviderGoogle, "https://photo.example/x.png", "user-2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := postJSON(t, "/api/auth/google-login", map[string]string{
		"idToken":  "valid-id-token",
		"uid":      "firebase-uid-2",
		"email":    "local@example.com",
		"name":     "Local",
		"photoURL": "https://photo.example/x.png",
	})
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGoogleLoginUIDMismatch(t *testing.T) {
	app, mock := newTestApp(t, stubVerifier{uid: "someone-else"})

	req := postJSON(t, "/api/auth/google-login", map[string]string{
		"idToken": "valid-id-token",
		"uid":     "firebase-uid-3",
		"email":   "gmail@example.com",
	})
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	result := decodeBody(t, resp)
	assert.Equal(t, "Invalid token", result["message"])
	// Tidak boleh menyentuh database sama sekali.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGoogleLoginVerificationError(t *testing.T) {
	app, _ := newTestApp(t, stubVerifier{err: errors.New("token revoked")})

	req := postJSON(t, "/api/auth/google-login", map[string]string{
		"idToken": "revoked-token",
		"uid":     "firebase-uid-4",
		"email":   "gmail@example.com",
	})
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogoutClearsCookie(t *testing.T) {
	app, _ := newTestApp(t, nil)

	req := httptest.NewRequest("POST", "/api/auth/logout", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	result := decodeBody(t, resp)
	assert.Equal(t, true, result["success"])
	assert.Equal(t, "Logged out successfully!", result["message"])

	cookie := findCookie(resp, "token")
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
}

func TestCheckAuth(t *testing.T) {
	app, _ := newTestApp(t, nil)

	// Tanpa cookie: 401.
	req := httptest.NewRequest("GET", "/api/auth/check-auth", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Dengan session valid: proyeksi user dari claims.
	req = httptest.NewRequest("GET", "/api/auth/check-auth", nil)
	req.AddCookie(sessionCookie(t, models.User{ID: "user-9", Name: "Nine", Email: "nine@example.com"}))
	resp, err = app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	result := decodeBody(t, resp)
	user, ok := result["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "user-9", user["id"])
	assert.Equal(t, "nine@example.com", user["email"])
	assert.Equal(t, "Nine", user["userName"])
}

func TestAuthGuardRejectsTamperedCookie(t *testing.T) {
	app, _ := newTestApp(t, nil)

	cookie := sessionCookie(t, models.User{ID: "user-1", Name: "User", Email: "u@example.com"})
	cookie.Value = cookie.Value + "tampered"
	if strings.HasSuffix(cookie.Value, "=") {
		cookie.Value = strings.TrimSuffix(cookie.Value, "=")
	}

	req := httptest.NewRequest("GET", "/api/auth/check-auth", nil)
	req.AddCookie(cookie)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
