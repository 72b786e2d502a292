package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maeuln/community/internal/apperror"
	"github.com/maeuln/community/internal/feed"
	"github.com/maeuln/community/internal/model"
	"github.com/maeuln/community/internal/repository"
)

// MonthLayout is the key format of a calendar month.
const MonthLayout = "2006-01"

// EventService manages a user's own calendar.
type EventService struct {
	events repository.EventRepository
	logger *slog.Logger
}

// NewEventService creates an EventService.
func NewEventService(events repository.EventRepository, logger *slog.Logger) *EventService {
	return &EventService{events: events, logger: logger}
}

// EventInput is a new or edited calendar event. When Date is empty it is
// taken from StartTime.
type EventInput struct {
	Date      string
	StartTime *time.Time
	Title     string
}

func (in EventInput) apply(e *model.CalendarEvent) error {
	title, err := requiredText("title", in.Title, MaxTitleLength)
	if err != nil {
		return err
	}

	date := strings.TrimSpace(in.Date)
	if date == "" && in.StartTime != nil {
		date = in.StartTime.Format(model.DateLayout)
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return apperror.ValidationFailed("date", "date must be YYYY-MM-DD")
	}

	e.Title = title
	e.Date = date
	e.StartTime = in.StartTime
	return nil
}

// Create adds an event to userID's calendar.
func (s *EventService) Create(ctx context.Context, userID string, in EventInput) (*model.CalendarEvent, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	e := &model.CalendarEvent{UserID: userID, Type: model.EventTypeUser}
	if err := in.apply(e); err != nil {
		return nil, err
	}

	if err := s.events.CreateEvent(ctx, e); err != nil {
		return nil, fmt.Errorf("service/event: creating event: %w", err)
	}
	return e, nil
}

// Update edits one of userID's events. Moving the start time re-arms its
// reminder.
func (s *EventService) Update(ctx context.Context, userID, id string, in EventInput) (*model.CalendarEvent, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	e, err := s.events.GetEvent(ctx, userID, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if err := in.apply(e); err != nil {
		return nil, err
	}

	if err := s.events.UpdateEvent(ctx, e); err != nil {
		return nil, err
	}
	return s.events.GetEvent(ctx, userID, e.ID)
}

// Delete removes one of userID's events.
func (s *EventService) Delete(ctx context.Context, userID, id string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	return s.events.DeleteEvent(ctx, userID, strings.TrimSpace(id))
}

// List returns userID's events between from and to (inclusive date keys,
// either may be empty) in date order.
func (s *EventService) List(ctx context.Context, userID, from, to string) ([]model.CalendarEvent, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	for field, d := range map[string]string{"from": from, "to": to} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(model.DateLayout, d); err != nil {
			return nil, apperror.ValidationFailed(field, field+" must be YYYY-MM-DD")
		}
	}

	events, err := s.events.ListEvents(ctx, userID, repository.EventFilter{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("service/event: listing events: %w", err)
	}
	return events, nil
}

// Month returns userID's events of month ("YYYY-MM") grouped by date.
// Dates without events are absent.
func (s *EventService) Month(ctx context.Context, userID, month string) (map[string][]model.CalendarEvent, error) {
	first, err := time.Parse(MonthLayout, strings.TrimSpace(month))
	if err != nil {
		return nil, apperror.ValidationFailed("month", "month must be YYYY-MM")
	}
	last := first.AddDate(0, 1, -1)

	events, err := s.List(ctx, userID, first.Format(model.DateLayout), last.Format(model.DateLayout))
	if err != nil {
		return nil, err
	}
	return feed.GroupEventsByDate(events), nil
}
