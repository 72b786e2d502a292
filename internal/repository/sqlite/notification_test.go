package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/maeuln/community/internal/apperror"
	"github.com/maeuln/community/internal/live"
	"github.com/maeuln/community/internal/model"
	"github.com/maeuln/community/internal/repository"
)

func TestNotifications_NewestFirstAndMarkRead(t *testing.T) {
	db, pub := newTestDB(t)
	ctx := context.Background()

	for _, content := range []string{"old", "new"} {
		n := &model.Notification{UserID: "u1", Content: content, Link: "/post/p1"}
		if err := db.CreateNotification(ctx, n); err != nil {
			t.Fatalf("CreateNotification() error = %v", err)
		}
	}
	db.CreateNotification(ctx, &model.Notification{UserID: "u2", Content: "other"})

	if !pub.has(live.NotificationsTopic("u1")) {
		t.Error("CreateNotification() did not publish the notifications topic")
	}

	notes, err := db.ListNotifications(ctx, "u1", repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListNotifications() error = %v", err)
	}
	if len(notes) != 2 || notes[0].Content != "new" {
		t.Fatalf("ListNotifications() = %+v", notes)
	}
	if notes[0].IsRead {
		t.Error("new notification should be unread")
	}

	if err := db.MarkNotificationRead(ctx, "u1", notes[0].ID); err != nil {
		t.Fatalf("MarkNotificationRead() error = %v", err)
	}
	notes, _ = db.ListNotifications(ctx, "u1", repository.ListOptions{})
	if !notes[0].IsRead {
		t.Error("notification should be read")
	}

	if err := db.MarkNotificationRead(ctx, "u2", notes[0].ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("MarkNotificationRead() by other user error = %v, want ErrNotFound", err)
	}
}

func TestNews_ListByCityAndDelete(t *testing.T) {
	db, pub := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "liker@example.com")

	suwon := &model.NewsItem{Title: "수원 축제", City: "수원시", Tags: []string{"축제", "가족"}}
	yongin := &model.NewsItem{Title: "용인 소식", City: "용인시"}
	for _, n := range []*model.NewsItem{suwon, yongin} {
		if err := db.CreateNews(ctx, n); err != nil {
			t.Fatalf("CreateNews() error = %v", err)
		}
	}
	db.ToggleNewsLike(ctx, user.ID, suwon.ID)

	items, err := db.ListNews(ctx, repository.NewsFilter{City: "수원시"})
	if err != nil {
		t.Fatalf("ListNews() error = %v", err)
	}
	if len(items) != 1 || len(items[0].Tags) != 2 || items[0].LikeCount != 1 {
		t.Fatalf("ListNews() = %+v", items)
	}

	pub.reset()
	if err := db.DeleteNews(ctx, suwon.ID); err != nil {
		t.Fatalf("DeleteNews() error = %v", err)
	}
	if !pub.has(live.UserTopic(user.ID)) {
		t.Error("DeleteNews() should signal likers' profiles")
	}
	profile, _ := db.GetUserByID(ctx, user.ID)
	if len(profile.LikedNews) != 0 {
		t.Errorf("LikedNews = %v, want empty after news deletion", profile.LikedNews)
	}
	if err := db.DeleteNews(ctx, suwon.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second DeleteNews() error = %v, want ErrNotFound", err)
	}
}
