package firebase

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Verifier memverifikasi Firebase ID token untuk google-login.
// Dibangun sekali di main lalu di-inject ke handler auth.
type Verifier struct {
	client *auth.Client
}

// NewVerifier membuat Verifier dari file service account.
// credentialsFile kosong memakai Application Default Credentials.
func NewVerifier(ctx context.Context, credentialsFile string) (*Verifier, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth client: %w", err)
	}
	return &Verifier{client: client}, nil
}

// Verify memvalidasi idToken dan mengembalikan subject (uid) di dalamnya.
func (v *Verifier) Verify(ctx context.Context, idToken string) (string, error) {
	decoded, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", err
	}
	return decoded.UID, nil
}
