package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the identity service's JWT endpoints
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new identity service client
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// Credentials is the request body for minting a token pair
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenPair holds a short-lived access token and its longer-lived refresh token
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Profile is the request body for creating an account
type Profile struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// User is the profile returned by the identity service. The service owns its
// shape, so it is kept as an attribute bag with accessors for the well-known
// fields rather than a fixed struct.
type User map[string]any

func (u User) str(key string) string {
	if v, ok := u[key].(string); ok {
		return v
	}
	return ""
}

// ID returns the user's id rendered as a string
func (u User) ID() string {
	switch v := u["id"].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	}
	return ""
}

// Username returns the user's username, or "" if the service omitted it
func (u User) Username() string { return u.str("username") }

// Email returns the user's email, or "" if the service omitted it
func (u User) Email() string { return u.str("email") }

// DisplayName returns the friendliest name available for the user
func (u User) DisplayName() string {
	if name := u.str("first_name"); name != "" {
		return name
	}
	if name := u.Username(); name != "" {
		return name
	}
	return u.Email()
}

type verifyRequest struct {
	Token string `json:"token"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access string `json:"access"`
}

// VerifyToken checks whether the identity service still accepts the token.
// A nil error means the token is valid.
func (c *Client) VerifyToken(ctx context.Context, token string) error {
	resp, err := c.postJSON(ctx, "/auth/jwt/verify/", verifyRequest{Token: token})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp)
	}

	return nil
}

// CreateTokenPair exchanges credentials for an access/refresh token pair
func (c *Client) CreateTokenPair(ctx context.Context, creds Credentials) (*TokenPair, error) {
	resp, err := c.postJSON(ctx, "/auth/jwt/create/", creds)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp)
	}

	var pair TokenPair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return &pair, nil
}

// RefreshAccessToken mints a new access token from a refresh token
func (c *Client) RefreshAccessToken(ctx context.Context, refresh string) (string, error) {
	resp, err := c.postJSON(ctx, "/auth/jwt/refresh/", refreshRequest{Refresh: refresh})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", newAPIError(resp)
	}

	var out refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode refresh response: %w", err)
	}

	return out.Access, nil
}

// CreateAccount registers a new user with the identity service
func (c *Client) CreateAccount(ctx context.Context, profile Profile) error {
	resp, err := c.postJSON(ctx, "/auth/users/", profile)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp)
	}

	return nil
}

// CurrentUser fetches the profile the access token belongs to
func (c *Client) CurrentUser(ctx context.Context, access string) (User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/users/me/", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Djoser-style scheme: the service expects "JWT", not "Bearer"
	req.Header.Set("Authorization", fmt.Sprintf("JWT %s", access))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user response: %w", err)
	}

	return user, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	return resp, nil
}

// APIError is a response the identity service answered but rejected.
// Transport failures are plain errors, never APIErrors.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("identity service rejected request (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("identity service rejected request (status %d)", e.StatusCode)
}

// newAPIError drains the response body and extracts the most relevant
// server-reported message. The service answers either a flat
// {"message"|"detail": "..."} or a field-keyed error map like
// {"password": ["too short"]}.
func newAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return apiErr
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return apiErr
	}

	for _, key := range []string{"message", "detail", "error"} {
		if msg, ok := payload[key].(string); ok && msg != "" {
			apiErr.Message = msg
			return apiErr
		}
	}

	// Field-keyed validation map: surface the first field message
	for field, value := range payload {
		if items, ok := value.([]any); ok && len(items) > 0 {
			if msg, ok := items[0].(string); ok && msg != "" {
				apiErr.Message = fmt.Sprintf("%s: %s", field, msg)
				return apiErr
			}
		}
	}

	return apiErr
}
