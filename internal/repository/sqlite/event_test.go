package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maeuln/community/internal/apperror"
	"github.com/maeuln/community/internal/live"
	"github.com/maeuln/community/internal/model"
	"github.com/maeuln/community/internal/repository"
)

func createTestEvent(t *testing.T, db *DB, userID, title string, start *time.Time, typ string) *model.CalendarEvent {
	t.Helper()
	date := time.Now().UTC().Format(model.DateLayout)
	if start != nil {
		date = start.UTC().Format(model.DateLayout)
	}
	e := &model.CalendarEvent{UserID: userID, Date: date, StartTime: start, Title: title, Type: typ}
	if err := db.CreateEvent(context.Background(), e); err != nil {
		t.Fatalf("failed to create test event: %v", err)
	}
	return e
}

func timePtr(t time.Time) *time.Time { return &t }

func TestCreateEvent_DefaultsAndPublish(t *testing.T) {
	db, pub := newTestDB(t)

	e := createTestEvent(t, db, "u1", "회의", nil, "")
	if e.Type != model.EventTypeUser {
		t.Errorf("Type = %q, want %q", e.Type, model.EventTypeUser)
	}
	if !pub.has(live.EventsTopic("u1")) {
		t.Error("CreateEvent() did not publish the events topic")
	}

	found, err := db.GetEvent(context.Background(), "u1", e.ID)
	if err != nil {
		t.Fatalf("GetEvent() error = %v", err)
	}
	if found.StartTime != nil {
		t.Errorf("StartTime = %v, want nil", found.StartTime)
	}
	if found.Path() != "users/u1/events/"+e.ID {
		t.Errorf("Path() = %q", found.Path())
	}
}

func TestGetEvent_OtherUser(t *testing.T) {
	db, _ := newTestDB(t)
	e := createTestEvent(t, db, "u1", "회의", nil, "")

	_, err := db.GetEvent(context.Background(), "u2", e.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetEvent() error = %v, want ErrNotFound", err)
	}
}

func TestListEvents_DateRange(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	for _, d := range []string{"2026-10-01", "2026-10-15", "2026-11-02"} {
		if err := db.CreateEvent(ctx, &model.CalendarEvent{UserID: "u1", Date: d, Title: d}); err != nil {
			t.Fatalf("CreateEvent() error = %v", err)
		}
	}
	db.CreateEvent(ctx, &model.CalendarEvent{UserID: "u2", Date: "2026-10-05", Title: "other"})

	events, err := db.ListEvents(ctx, "u1", repository.EventFilter{From: "2026-10-01", To: "2026-10-31"})
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(events) != 2 || events[0].Date != "2026-10-01" || events[1].Date != "2026-10-15" {
		t.Errorf("ListEvents() = %+v", events)
	}
}

func TestListDueReminders_Window(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	soon := createTestEvent(t, db, "u1", "곧", timePtr(now.Add(45*time.Minute)), model.EventTypeUser)
	createTestEvent(t, db, "u1", "나중", timePtr(now.Add(2*time.Hour)), model.EventTypeUser)
	createTestEvent(t, db, "u1", "지남", timePtr(now.Add(-5*time.Minute)), model.EventTypeUser)
	createTestEvent(t, db, "u1", "시스템", timePtr(now.Add(30*time.Minute)), model.EventTypeSystem)
	createTestEvent(t, db, "u1", "종일", nil, model.EventTypeUser)

	due, err := db.ListDueReminders(ctx, now, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("ListDueReminders() error = %v", err)
	}
	if len(due) != 1 || due[0].ID != soon.ID {
		t.Errorf("ListDueReminders() = %+v, want only %q", due, soon.ID)
	}
}

func TestCreateReminder_OnlyOnce(t *testing.T) {
	db, pub := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	e := createTestEvent(t, db, "u1", "진료", timePtr(now.Add(30*time.Minute)), model.EventTypeUser)
	pub.reset()

	n := &model.Notification{UserID: "u1", Content: "곧 시작", Link: "/calendar"}
	claimed, err := db.CreateReminder(ctx, *e, n)
	if err != nil || !claimed {
		t.Fatalf("CreateReminder() = %v, %v; want true, nil", claimed, err)
	}
	if !pub.has(live.NotificationsTopic("u1")) {
		t.Error("CreateReminder() did not publish the notifications topic")
	}

	again, err := db.CreateReminder(ctx, *e, &model.Notification{UserID: "u1", Content: "곧 시작"})
	if err != nil || again {
		t.Fatalf("second CreateReminder() = %v, %v; want false, nil", again, err)
	}

	notes, _ := db.ListNotifications(ctx, "u1", repository.ListOptions{})
	if len(notes) != 1 {
		t.Errorf("notifications = %d, want 1", len(notes))
	}

	due, _ := db.ListDueReminders(ctx, now, now.Add(time.Hour))
	if len(due) != 0 {
		t.Errorf("reminded event still due: %+v", due)
	}
}

func TestUpdateEvent_MovingStartRearmsReminder(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	e := createTestEvent(t, db, "u1", "약속", timePtr(now.Add(30*time.Minute)), model.EventTypeUser)

	if _, err := db.CreateReminder(ctx, *e, &model.Notification{UserID: "u1", Content: "x"}); err != nil {
		t.Fatalf("CreateReminder() error = %v", err)
	}

	// Same start time: the reminder stays consumed.
	e.Title = "약속 (장소 변경)"
	if err := db.UpdateEvent(ctx, e); err != nil {
		t.Fatalf("UpdateEvent() error = %v", err)
	}
	got, _ := db.GetEvent(ctx, "u1", e.ID)
	if got.RemindedAt == nil {
		t.Error("title change should not re-arm the reminder")
	}

	e.StartTime = timePtr(now.Add(50 * time.Minute))
	if err := db.UpdateEvent(ctx, e); err != nil {
		t.Fatalf("UpdateEvent() error = %v", err)
	}
	got, _ = db.GetEvent(ctx, "u1", e.ID)
	if got.RemindedAt != nil {
		t.Error("moving the start time should re-arm the reminder")
	}
}

func TestDeleteEvent(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()
	e := createTestEvent(t, db, "u1", "삭제", nil, "")

	if err := db.DeleteEvent(ctx, "u2", e.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("DeleteEvent() by other user error = %v, want ErrNotFound", err)
	}
	if err := db.DeleteEvent(ctx, "u1", e.ID); err != nil {
		t.Fatalf("DeleteEvent() error = %v", err)
	}
}
