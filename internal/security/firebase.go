package security

import (
	"context"

	"firebase.google.com/go/v4/auth"

	"temple-services-backend/internal/logger"
)

// idTokenVerifier is the part of *auth.Client used here.
type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseVerifier verifies Firebase ID tokens issued to the web client.
type FirebaseVerifier struct {
	client idTokenVerifier
}

func NewFirebaseVerifier(client *auth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*Identity, error) {
	logger.ExternalServiceCall("firebase-auth", "VerifyIDToken")
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		logger.Debug("ID token rejected", "error", err)
		if auth.IsIDTokenExpired(err) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	logger.ExternalServiceResult("firebase-auth", "VerifyIDToken", nil, "user_id", token.UID)

	id := &Identity{UserID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		id.Email = email
	}
	return id, nil
}
