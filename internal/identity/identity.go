// Package identity fetches account profiles from the hosted identity provider.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"contentflow/internal/observability"
)

// DefaultTimeout bounds a single profile lookup.
const DefaultTimeout = 5 * time.Second

// ErrUserNotFound is returned when the provider has no account with the id.
var ErrUserNotFound = errors.New("identity: user not found")

// Profile is the subset of the provider's user record we persist.
type Profile struct {
	ID              string
	Email           string
	FirstName       *string
	LastName        *string
	ProfileImageURL *string
}

// Provider looks up profiles by the subject of a verified session.
type Provider interface {
	FetchProfile(ctx context.Context, userID string) (*Profile, error)
}

// ClerkProvider reads users from the Clerk backend API.
type ClerkProvider struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

// NewClerkProvider returns a provider for baseURL (e.g. https://api.clerk.com/v1).
// A nil client gets one with DefaultTimeout.
func NewClerkProvider(baseURL, secretKey string, client *http.Client) *ClerkProvider {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &ClerkProvider{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		client:    client,
	}
}

type clerkUser struct {
	ID                    string  `json:"id"`
	FirstName             *string `json:"first_name"`
	LastName              *string `json:"last_name"`
	ImageURL              *string `json:"image_url"`
	PrimaryEmailAddressID string  `json:"primary_email_address_id"`
	EmailAddresses        []struct {
		ID           string `json:"id"`
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

func (p *ClerkProvider) FetchProfile(ctx context.Context, userID string) (profile *Profile, err error) {
	ctx, span := observability.StartExternalSpan(ctx, "identity", "FetchProfile")
	defer func() { observability.EndSpan(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/users/"+url.PathEscape(userID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrUserNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("identity API error: %d", resp.StatusCode)
	}

	var u clerkUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("decode identity response: %w", err)
	}

	return &Profile{
		ID:              userID,
		Email:           u.primaryEmail(),
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		ProfileImageURL: u.ImageURL,
	}, nil
}

// primaryEmail prefers the flagged primary address and falls back to the first.
func (u clerkUser) primaryEmail() string {
	for _, e := range u.EmailAddresses {
		if e.ID != "" && e.ID == u.PrimaryEmailAddressID {
			return e.EmailAddress
		}
	}
	if len(u.EmailAddresses) > 0 {
		return u.EmailAddresses[0].EmailAddress
	}
	return ""
}

// StaticProvider serves profiles from memory. Unknown ids get a synthetic
// profile so local development works without provider credentials.
type StaticProvider struct {
	Profiles map[string]Profile
}

func (p StaticProvider) FetchProfile(_ context.Context, userID string) (*Profile, error) {
	if prof, ok := p.Profiles[userID]; ok {
		prof.ID = userID
		return &prof, nil
	}
	return &Profile{ID: userID, Email: userID + "@users.local"}, nil
}
