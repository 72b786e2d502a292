package service

import (
	"context"
	"errors"
	"testing"

	"github.com/maeuln/community/internal/apperror"
	"github.com/maeuln/community/internal/model"
)

func TestNotifications(t *testing.T) {
	db := newTestStore(t)
	svc := NewNotificationService(db, discardLogger())
	ctx := context.Background()

	for _, content := range []string{"첫 번째", "두 번째"} {
		if err := db.CreateNotification(ctx, &model.Notification{UserID: "u1", Content: content, Link: "/calendar"}); err != nil {
			t.Fatal(err)
		}
	}

	list, err := svc.List(ctx, "u1", 0, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 || list[0].Content != "두 번째" {
		t.Fatalf("list = %+v, want newest first", list)
	}

	if err := svc.MarkRead(ctx, "u1", list[0].ID); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	if err := svc.MarkRead(ctx, "u2", list[1].ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("foreign MarkRead error = %v, want ErrNotFound", err)
	}

	list, _ = svc.List(ctx, "u1", 0, 0)
	if !list[0].IsRead || list[1].IsRead {
		t.Errorf("read flags = %v, %v", list[0].IsRead, list[1].IsRead)
	}
}
