package googlepass

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const saveURLBase = "https://pay.google.com/gp/v/save/"

// SaveLinkSigner mints "Save to Google Wallet" links. Google only accepts
// signed save URLs, so the link is an RS256 JWT whose payload references
// the pre-created object id rather than re-describing the pass; nothing
// about the pass content is exposed in the URL.
type SaveLinkSigner struct {
	account *ServiceAccount
}

// NewSaveLinkSigner returns a signer for the given service account.
func NewSaveLinkSigner(account *ServiceAccount) *SaveLinkSigner {
	return &SaveLinkSigner{account: account}
}

// SignSaveURL returns the save link for a fully qualified object id. The
// token is valid for one hour. There is no unsigned fallback: without a
// key the caller must report the platform as failed rather than emit a
// link Google would reject.
func (s *SaveLinkSigner) SignSaveURL(objectID string) (string, error) {
	if s.account == nil || s.account.key == nil {
		return "", fmt.Errorf("no signing key configured for save links")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": s.account.ClientEmail,
		"aud": "google",
		"typ": "savetowallet",
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
		"payload": map[string]any{
			"eventTicketObjects": []map[string]string{
				{"id": objectID},
			},
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.account.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign save link: %w", err)
	}
	return saveURLBase + token, nil
}
