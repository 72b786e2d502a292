package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/maeuln/community/internal/event"
	"github.com/maeuln/community/internal/model"
	"github.com/maeuln/community/internal/region"
	"github.com/maeuln/community/internal/repository/sqlite"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestStore returns a migrated in-memory store.
func newTestStore(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(":memory:", nil)
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testRegions(t *testing.T) *region.Directory {
	t.Helper()
	d, err := region.Load()
	if err != nil {
		t.Fatalf("region.Load: %v", err)
	}
	return d
}

// createUser stores a user in city. An empty city leaves region setup
// pending.
func createUser(t *testing.T, db *sqlite.DB, email, city string, role string) *model.UserProfile {
	t.Helper()
	u := &model.UserProfile{Email: email, DisplayName: email, City: city, Role: role}
	if city != "" {
		u.Region = city
	}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return u
}

// fakeImages records removed URLs.
type fakeImages struct {
	mu      sync.Mutex
	removed []string
	err     error
}

func (f *fakeImages) Save(context.Context, string, io.Reader) (string, error) {
	return "/media/fake.png", nil
}

func (f *fakeImages) Remove(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, url)
	return f.err
}

// recordingDispatcher remembers dispatched events.
type recordingDispatcher struct {
	comments []event.CommentEvent
	reports  []event.ReportEvent
	err      error
}

func (d *recordingDispatcher) CommentCreated(_ context.Context, evt event.CommentEvent) error {
	d.comments = append(d.comments, evt)
	return d.err
}

func (d *recordingDispatcher) ReportCreated(_ context.Context, evt event.ReportEvent) error {
	d.reports = append(d.reports, evt)
	return d.err
}
