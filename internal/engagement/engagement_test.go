package engagement

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/maeuln/community/internal/apperror"
)

type fakeStore struct {
	sets  map[string]map[string]bool
	err   error
	calls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{sets: make(map[string]map[string]bool)}
}

func (f *fakeStore) toggle(set, member string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	if f.sets[set] == nil {
		f.sets[set] = make(map[string]bool)
	}
	if f.sets[set][member] {
		delete(f.sets[set], member)
		return false, nil
	}
	f.sets[set][member] = true
	return true, nil
}

func (f *fakeStore) ToggleNewsLike(_ context.Context, userID, newsID string) (bool, error) {
	return f.toggle("likedNews/"+userID, newsID)
}

func (f *fakeStore) TogglePostLike(_ context.Context, userID, postID string) (bool, error) {
	return f.toggle("likedBy/"+postID, userID)
}

func (f *fakeStore) ToggleFollow(_ context.Context, followerID, followeeID string) (bool, error) {
	return f.toggle("following/"+followerID, followeeID)
}

func newTestMutator(store Store) *Mutator {
	return New(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestTogglePostLike_TwiceRestoresSet(t *testing.T) {
	store := newFakeStore()
	m := newTestMutator(store)
	ctx := context.Background()

	liked, err := m.TogglePostLike(ctx, "u1", "p1")
	if err != nil || !liked {
		t.Fatalf("first toggle = (%v, %v), want (true, nil)", liked, err)
	}
	liked, err = m.TogglePostLike(ctx, "u1", "p1")
	if err != nil || liked {
		t.Fatalf("second toggle = (%v, %v), want (false, nil)", liked, err)
	}
	if len(store.sets["likedBy/p1"]) != 0 {
		t.Errorf("likedBy = %v, want empty", store.sets["likedBy/p1"])
	}
}

func TestToggleNewsLike(t *testing.T) {
	store := newFakeStore()
	m := newTestMutator(store)

	liked, err := m.ToggleNewsLike(context.Background(), "u1", "n1")
	if err != nil || !liked {
		t.Fatalf("ToggleNewsLike = (%v, %v), want (true, nil)", liked, err)
	}
	if !store.sets["likedNews/u1"]["n1"] {
		t.Error("n1 should be in u1's liked news")
	}
}

func TestToggleFollow_Self(t *testing.T) {
	store := newFakeStore()
	m := newTestMutator(store)

	_, err := m.ToggleFollow(context.Background(), "u1", "u1")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
	if store.calls != 0 {
		t.Errorf("store called %d times, want 0", store.calls)
	}
}

func TestToggle_InputValidation(t *testing.T) {
	m := newTestMutator(newFakeStore())
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{
			name: "signed out",
			call: func() error { _, err := m.TogglePostLike(ctx, "", "p1"); return err },
			want: apperror.ErrUnauthorized,
		},
		{
			name: "missing news id",
			call: func() error { _, err := m.ToggleNewsLike(ctx, "u1", " "); return err },
			want: apperror.ErrValidation,
		},
		{
			name: "missing target",
			call: func() error { _, err := m.ToggleFollow(ctx, "u1", ""); return err },
			want: apperror.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestToggle_StoreFailureIsGeneric(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("database is locked")
	m := newTestMutator(store)

	_, err := m.ToggleFollow(context.Background(), "u1", "u2")
	if !errors.Is(err, apperror.ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Message != "could not follow user, please try again" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestToggle_NotFoundPassesThrough(t *testing.T) {
	store := newFakeStore()
	store.err = apperror.NotFound("post", "p9")
	m := newTestMutator(store)

	_, err := m.TogglePostLike(context.Background(), "u1", "p9")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	if errors.Is(err, apperror.ErrUnavailable) {
		t.Error("not found should not be reported as unavailable")
	}
}
