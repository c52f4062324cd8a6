package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const baseURL = "https://api.clerk.com/v1"

// User carries the identity-provider fields the profile sync cares about.
type User struct {
	ID        string
	Email     string
	FullName  string
	AvatarURL string
}

// Provider resolves an authenticated user id to its identity record.
type Provider interface {
	GetUser(ctx context.Context, userID string) (User, error)
}

// ErrUserNotFound is returned when the identity provider has no record for the id.
var ErrUserNotFound = errors.New("identity: user not found")

// ClerkClient reads user records from the Clerk Backend API (server-side).
type ClerkClient struct {
	httpClient *http.Client
	secretKey  string
}

// NewClerkClient creates a Clerk Backend API client. secretKey must be non-empty.
func NewClerkClient(secretKey string) *ClerkClient {
	return &ClerkClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		secretKey:  strings.TrimSpace(secretKey),
	}
}

// clerkUserResponse matches Clerk Backend API GET /users/{user_id}.
type clerkUserResponse struct {
	ID                    string `json:"id"`
	Username              string `json:"username"`
	FirstName             string `json:"first_name"`
	LastName              string `json:"last_name"`
	ImageURL              string `json:"image_url"`
	PrimaryEmailAddressID string `json:"primary_email_address_id"`
	EmailAddresses        []struct {
		ID           string `json:"id"`
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

// GetUser fetches the Clerk user record and flattens it into the fields stored on a profile.
func (c *ClerkClient) GetUser(ctx context.Context, userID string) (User, error) {
	if c.secretKey == "" {
		return User{}, errors.New("clerk secret key is not configured")
	}

	url := baseURL + "/users/" + userID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return User{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return User{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return User{}, ErrUserNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return User{}, fmt.Errorf("clerk api status %d", resp.StatusCode)
	}

	var body clerkUserResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return User{}, err
	}

	return flattenUser(body), nil
}

func flattenUser(body clerkUserResponse) User {
	email := ""
	for _, addr := range body.EmailAddresses {
		if addr.ID == body.PrimaryEmailAddressID {
			email = addr.EmailAddress
			break
		}
	}
	if email == "" && len(body.EmailAddresses) > 0 {
		email = body.EmailAddresses[0].EmailAddress
	}

	fullName := strings.TrimSpace(strings.TrimSpace(body.FirstName) + " " + strings.TrimSpace(body.LastName))
	if fullName == "" {
		fullName = body.Username
	}
	if fullName == "" {
		fullName = email
	}

	return User{
		ID:        body.ID,
		Email:     email,
		FullName:  fullName,
		AvatarURL: body.ImageURL,
	}
}
