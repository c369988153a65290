package crypto

import "golang.org/x/crypto/bcrypt"

// HashPassword menghasilkan bcrypt hash dari password plaintext.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword membandingkan hash yang tersimpan dengan password plaintext.
// Perbandingan bcrypt bersifat constant-time.
func CheckPassword(hashed, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}
