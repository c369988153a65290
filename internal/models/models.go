package models

import "time"

const (
	// AuthProviderLocal adalah default untuk akun email/password.
	AuthProviderLocal  = "local"
	AuthProviderGoogle = "google"

	// GoogleAuthSentinel disimpan di kolom password untuk akun federated.
	// Tidak pernah lolos perbandingan bcrypt, jadi login lokal terhadap
	// akun Google selalu gagal.
	GoogleAuthSentinel = "GOOGLE_AUTH"
)

type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Password       string    `json:"-"`
	FirebaseUID    *string   `json:"firebaseUid,omitempty"`
	ProfilePicture *string   `json:"profilePicture,omitempty"`
	AuthProvider   string    `json:"authProvider"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Task adalah record task milik satu user.
// completedAt non-null hanya jika completed bernilai true.
type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Title       string     `json:"title"`
	Completed   bool       `json:"completed"`
	StartTime   *time.Time `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt"`
	ImagePath   *string    `json:"imagePath"`
}
