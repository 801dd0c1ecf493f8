// Package googlepass talks to the Google Wallet Objects REST API.
//
// The API has a two-level model: an event ticket class (one per event,
// acting as the template) and an event ticket object (one per attendee).
// Class creation is idempotent: an HTTP 409 means the class already exists
// and is treated as success. Object creation falls back to an in-place
// update on 409.
package googlepass

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	walletAPIBase = "https://walletobjects.googleapis.com/walletobjects/v1"
	walletScope   = "https://www.googleapis.com/auth/wallet_object.issuer"
)

// ServiceAccount is the subset of a Google service-account key file the
// wallet integration needs.
type ServiceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`

	key *rsa.PrivateKey
}

// LoadServiceAccount reads and parses a service-account JSON key file.
func LoadServiceAccount(path string) (*ServiceAccount, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	var sa ServiceAccount
	if err := json.Unmarshal(raw, &sa); err != nil {
		return nil, fmt.Errorf("parse service account file: %w", err)
	}
	if sa.ClientEmail == "" || sa.PrivateKey == "" {
		return nil, fmt.Errorf("service account file missing client_email or private_key")
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(sa.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	sa.key = key
	if sa.TokenURI == "" {
		sa.TokenURI = "https://oauth2.googleapis.com/token"
	}
	return &sa, nil
}

// LocalizedString is the wallet API's localized text wrapper.
type LocalizedString struct {
	DefaultValue LanguageValue `json:"defaultValue"`
}

// LanguageValue pairs a BCP-47 language tag with a value.
type LanguageValue struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

// NewLocalizedString returns an en-US localized string.
func NewLocalizedString(value string) LocalizedString {
	return LocalizedString{DefaultValue: LanguageValue{Language: "en-US", Value: value}}
}

// TextModule is one labeled text block on a pass.
type TextModule struct {
	ID     string `json:"id"`
	Header string `json:"header"`
	Body   string `json:"body"`
}

// Barcode is the scannable code on a pass object.
type Barcode struct {
	Type          string `json:"type"`
	Value         string `json:"value"`
	AlternateText string `json:"alternateText,omitempty"`
}

// EventDateTime carries the event start for display on the pass.
type EventDateTime struct {
	Start string `json:"start"`
}

// EventTicketClass is the event-scoped pass template.
type EventTicketClass struct {
	ID              string          `json:"id"`
	EventID         string          `json:"eventId"`
	IssuerName      string          `json:"issuerName"`
	EventName       LocalizedString `json:"eventName"`
	ReviewStatus    string          `json:"reviewStatus"`
	TextModulesData []TextModule    `json:"textModulesData,omitempty"`
}

// EventTicketObject is the attendee-scoped pass instance.
type EventTicketObject struct {
	ID               string          `json:"id"`
	ClassID          string          `json:"classId"`
	State            string          `json:"state"`
	TicketHolderName string          `json:"ticketHolderName"`
	EventName        LocalizedString `json:"eventName"`
	Barcode          Barcode         `json:"barcode"`
	EventDateTime    *EventDateTime  `json:"eventDateTime,omitempty"`
	TextModulesData  []TextModule    `json:"textModulesData,omitempty"`
}

// Client calls the wallet REST API as the configured service account,
// authenticating with the OAuth2 JWT-bearer flow.
type Client struct {
	httpClient *http.Client
	account    *ServiceAccount
	baseURL    string

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient returns a wallet API client. A nil httpClient uses a client
// with a 15s timeout; all calls are additionally bounded by ctx.
func NewClient(account *ServiceAccount, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		httpClient: httpClient,
		account:    account,
		baseURL:    walletAPIBase,
	}
}

// EnsureClass creates the class, treating "already exists" as success.
func (c *Client) EnsureClass(ctx context.Context, class *EventTicketClass) error {
	status, _, err := c.do(ctx, http.MethodPost, c.baseURL+"/eventTicketClass", class)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK, http.StatusConflict:
		return nil
	default:
		return fmt.Errorf("create pass class: unexpected status %d", status)
	}
}

// UpsertObject creates the object, or updates it in place when it already
// exists. It returns the state reported by the API so callers can warn on
// non-active passes.
func (c *Client) UpsertObject(ctx context.Context, object *EventTicketObject) (string, error) {
	status, body, err := c.do(ctx, http.MethodPost, c.baseURL+"/eventTicketObject", object)
	if err != nil {
		return "", err
	}
	if status == http.StatusConflict {
		status, body, err = c.do(ctx, http.MethodPut, c.baseURL+"/eventTicketObject/"+url.PathEscape(object.ID), object)
		if err != nil {
			return "", err
		}
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("create pass object: unexpected status %d", status)
	}
	var resp struct {
		State string `json:"state"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("decode pass object response: %w", err)
		}
	}
	return resp.State, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload any) (int, []byte, error) {
	token, err := c.token(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("authorize wallet request: %w", err)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(raw))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("wallet api request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read wallet api response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// token returns a cached access token, minting a new one via the JWT-bearer
// grant when the cache is empty or within a minute of expiry.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-time.Minute)) {
		return c.accessToken, nil
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   c.account.ClientEmail,
		"scope": walletScope,
		"aud":   c.account.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.account.key)
	if err != nil {
		return "", fmt.Errorf("sign token assertion: %w", err)
	}

	form := url.Values{}
	form.Set("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer")
	form.Set("assertion", assertion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.account.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status: %d", resp.StatusCode)
	}
	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	c.accessToken = tok.AccessToken
	c.tokenExpiry = now.Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.accessToken, nil
}
