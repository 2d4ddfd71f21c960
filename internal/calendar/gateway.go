// Package calendar talks to the external calendar service: OAuth consent,
// token exchange and refresh, and event writes for scheduled content.
package calendar

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// PrimaryCalendar is the calendar every event is written to.
const PrimaryCalendar = "primary"

// Event is the calendar representation of one content item.
type Event struct {
	Summary     string
	Description string
	ColorID     string
	Start       time.Time
	End         time.Time
	TimeZone    string
}

// Gateway is the external calendar service.
type Gateway interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error)
	InsertEvent(ctx context.Context, token *oauth2.Token, ev Event) (string, error)
	UpdateEvent(ctx context.Context, token *oauth2.Token, eventID string, ev Event) error
	DeleteEvent(ctx context.Context, token *oauth2.Token, eventID string) error
}

// GoogleConfig holds the OAuth client registration.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Endpoint overrides google.Endpoint when set.
	Endpoint *oauth2.Endpoint
	// ClientOptions are appended when building the Calendar API client.
	ClientOptions []option.ClientOption
}

// GoogleGateway is the Google Calendar implementation of Gateway.
type GoogleGateway struct {
	oauth      *oauth2.Config
	clientOpts []option.ClientOption
}

// NewGoogleGateway returns a gateway requesting offline access to calendar events.
func NewGoogleGateway(cfg GoogleConfig) *GoogleGateway {
	endpoint := google.Endpoint
	if cfg.Endpoint != nil {
		endpoint = *cfg.Endpoint
	}
	return &GoogleGateway{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{gcal.CalendarEventsScope},
		},
		clientOpts: cfg.ClientOptions,
	}
}

// AuthCodeURL forces the consent screen so Google always returns a refresh token.
func (g *GoogleGateway) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

func (g *GoogleGateway) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return tok, nil
}

// Refresh trades the refresh token for a new access token.
func (g *GoogleGateway) Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	if token == nil || token.RefreshToken == "" {
		return nil, fmt.Errorf("refresh access token: no refresh token")
	}
	tok, err := g.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: token.RefreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh access token: %w", err)
	}
	return tok, nil
}

func (g *GoogleGateway) service(ctx context.Context, token *oauth2.Token) (*gcal.Service, error) {
	opts := append([]option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(token)),
	}, g.clientOpts...)
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar client: %w", err)
	}
	return svc, nil
}

func (g *GoogleGateway) InsertEvent(ctx context.Context, token *oauth2.Token, ev Event) (string, error) {
	svc, err := g.service(ctx, token)
	if err != nil {
		return "", err
	}
	created, err := svc.Events.Insert(PrimaryCalendar, toAPIEvent(ev)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert calendar event: %w", err)
	}
	return created.Id, nil
}

func (g *GoogleGateway) UpdateEvent(ctx context.Context, token *oauth2.Token, eventID string, ev Event) error {
	svc, err := g.service(ctx, token)
	if err != nil {
		return err
	}
	if _, err := svc.Events.Update(PrimaryCalendar, eventID, toAPIEvent(ev)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("update calendar event %s: %w", eventID, err)
	}
	return nil
}

func (g *GoogleGateway) DeleteEvent(ctx context.Context, token *oauth2.Token, eventID string) error {
	svc, err := g.service(ctx, token)
	if err != nil {
		return err
	}
	if err := svc.Events.Delete(PrimaryCalendar, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete calendar event %s: %w", eventID, err)
	}
	return nil
}

func toAPIEvent(ev Event) *gcal.Event {
	return &gcal.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		ColorId:     ev.ColorID,
		Start: &gcal.EventDateTime{
			DateTime: ev.Start.Format(time.RFC3339),
			TimeZone: ev.TimeZone,
		},
		End: &gcal.EventDateTime{
			DateTime: ev.End.Format(time.RFC3339),
			TimeZone: ev.TimeZone,
		},
	}
}
