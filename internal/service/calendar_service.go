package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"contentflow/internal/calendar"
	"contentflow/internal/middleware"
	"contentflow/internal/models"
	"contentflow/internal/observability"
	"contentflow/internal/repository"

	"golang.org/x/oauth2"
)

// CalendarService connects accounts to Google Calendar and mirrors
// scheduled content items as events.
type CalendarService struct {
	gateway calendar.Gateway
	states  *calendar.StateSigner
	users   repository.UserRepository
	userSvc *UserService
	content *ContentService
	now     func() time.Time
}

func NewCalendarService(
	gateway calendar.Gateway,
	states *calendar.StateSigner,
	users repository.UserRepository,
	userSvc *UserService,
	content *ContentService,
) *CalendarService {
	return &CalendarService{
		gateway: gateway,
		states:  states,
		users:   users,
		userSvc: userSvc,
		content: content,
		now:     time.Now,
	}
}

// AuthURL returns the consent URL for userID.
func (s *CalendarService) AuthURL(userID string) (string, error) {
	state, err := s.states.Sign(userID)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return s.gateway.AuthCodeURL(state), nil
}

// HandleCallback finishes the consent flow and stores the tokens for the
// user named by state.
func (s *CalendarService) HandleCallback(ctx context.Context, code, state string) (string, error) {
	if code == "" || state == "" {
		return "", models.NewValidationError("Missing authorization code or state")
	}
	userID, err := s.states.Verify(ctx, state)
	if err != nil {
		return "", models.NewUnauthorizedError(err.Error())
	}

	tok, err := s.gateway.Exchange(ctx, code)
	if err != nil {
		observability.CalendarSyncs.WithLabelValues("exchange", "error").Inc()
		return "", models.NewInternalError(err)
	}

	if _, err := s.users.UpdateCalendarTokens(ctx, userID, tokensFrom(tok)); err != nil {
		return "", err
	}
	s.userSvc.Invalidate(userID)
	observability.CalendarSyncs.WithLabelValues("exchange", "ok").Inc()
	return userID, nil
}

// Sync creates or updates the calendar event for one of the user's items
// and returns the event id.
func (s *CalendarService) Sync(ctx context.Context, userID string, contentID int64) (eventID string, err error) {
	ctx, span := observability.StartExternalSpan(ctx, "google_calendar", "Sync")
	defer func() { observability.EndSpan(span, err) }()

	item, err := s.content.GetOwned(ctx, userID, contentID)
	if err != nil {
		return "", err
	}
	ev, err := calendar.BuildEvent(*item)
	if err != nil {
		return "", err
	}
	tok, err := s.token(ctx, userID)
	if err != nil {
		return "", err
	}

	if item.GoogleCalendarEventID != nil && *item.GoogleCalendarEventID != "" {
		eventID = *item.GoogleCalendarEventID
		if err := s.gateway.UpdateEvent(ctx, tok, eventID, ev); err != nil {
			observability.CalendarSyncs.WithLabelValues("update", "error").Inc()
			return "", models.NewInternalError(err)
		}
		observability.CalendarSyncs.WithLabelValues("update", "ok").Inc()
		return eventID, nil
	}

	eventID, err = s.gateway.InsertEvent(ctx, tok, ev)
	if err != nil {
		observability.CalendarSyncs.WithLabelValues("insert", "error").Inc()
		return "", models.NewInternalError(err)
	}
	observability.CalendarSyncs.WithLabelValues("insert", "ok").Inc()

	if _, err := s.content.SyncEventID(ctx, contentID, &eventID); err != nil {
		return "", err
	}
	return eventID, nil
}

// DeleteEvent removes the item's event when it has one. Failures are logged
// and swallowed.
func (s *CalendarService) DeleteEvent(ctx context.Context, userID string, item *models.ContentItem) {
	if item == nil || item.GoogleCalendarEventID == nil || *item.GoogleCalendarEventID == "" {
		return
	}
	tok, err := s.token(ctx, userID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "skipping calendar event delete", slog.String("error", err.Error()))
		return
	}
	if err := s.gateway.DeleteEvent(ctx, tok, *item.GoogleCalendarEventID); err != nil {
		observability.CalendarSyncs.WithLabelValues("delete", "error").Inc()
		middleware.Logger.ErrorContext(ctx, "error deleting calendar event",
			slog.Int64("content_id", item.ID),
			slog.String("error", err.Error()))
		return
	}
	observability.CalendarSyncs.WithLabelValues("delete", "ok").Inc()
}

// Disconnect forgets the user's calendar tokens.
func (s *CalendarService) Disconnect(ctx context.Context, userID string) error {
	if _, err := s.users.DisconnectCalendar(ctx, userID); err != nil {
		return err
	}
	s.userSvc.Invalidate(userID)
	return nil
}

// token returns a usable access token, refreshing and persisting it when
// the stored one has expired.
func (s *CalendarService) token(ctx context.Context, userID string) (*oauth2.Token, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.HasCalendarTokens() {
		return nil, models.NewValidationError("User not connected to Google Calendar")
	}

	tok := &oauth2.Token{AccessToken: *user.GoogleAccessToken}
	if user.GoogleRefreshToken != nil {
		tok.RefreshToken = *user.GoogleRefreshToken
	}
	if user.GoogleTokenExpiry == nil || s.now().Before(*user.GoogleTokenExpiry) {
		if user.GoogleTokenExpiry != nil {
			tok.Expiry = *user.GoogleTokenExpiry
		}
		return tok, nil
	}

	fresh, err := s.gateway.Refresh(ctx, tok)
	if err != nil {
		observability.CalendarSyncs.WithLabelValues("refresh", "error").Inc()
		return nil, models.NewInternalError(errors.Join(errors.New("refresh calendar token"), err))
	}
	if _, err := s.users.UpdateCalendarTokens(ctx, userID, tokensFrom(fresh)); err != nil {
		return nil, err
	}
	s.userSvc.Invalidate(userID)
	observability.CalendarSyncs.WithLabelValues("refresh", "ok").Inc()
	return fresh, nil
}

func tokensFrom(tok *oauth2.Token) models.CalendarTokens {
	out := models.CalendarTokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry
		out.Expiry = &expiry
	}
	return out
}
