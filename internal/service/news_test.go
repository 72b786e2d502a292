package service

import (
	"context"
	"errors"
	"testing"

	"github.com/maeuln/community/internal/apperror"
	"github.com/maeuln/community/internal/model"
	"github.com/maeuln/community/internal/scope"
)

func TestNews_AdminOnly(t *testing.T) {
	db := newTestStore(t)
	images := &fakeImages{}
	svc := NewNewsService(db, db, testRegions(t), images, discardLogger())
	ctx := context.Background()

	admin := createUser(t, db, "admin@example.com", "", model.RoleAdmin)
	user := createUser(t, db, "u@example.com", "서울특별시", model.RoleUser)

	in := NewsInput{
		Title:     "청년 지원금 안내",
		Content:   "신청하세요",
		ImageURL:  "/media/poster.png",
		ApplyLink: "https://example.com/apply",
		City:      "서울특별시",
		Tags:      []string{"지원금", " 청년 ", "지원금", ""},
	}

	if _, err := svc.Create(ctx, user.ID, in); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("user create error = %v, want ErrForbidden", err)
	}

	item, err := svc.Create(ctx, admin.ID, in)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(item.Tags) != 2 || item.Tags[0] != "지원금" || item.Tags[1] != "청년" {
		t.Errorf("tags = %v, want [지원금 청년]", item.Tags)
	}

	list, err := svc.List(ctx, scope.Scope{Kind: scope.City, City: "서울특별시"}, 0, 0)
	if err != nil || len(list) != 1 {
		t.Fatalf("List() = %v, %v", list, err)
	}
	if other, _ := svc.List(ctx, scope.Scope{Kind: scope.City, City: "부산광역시"}, 0, 0); len(other) != 0 {
		t.Errorf("busan news = %v, want none", other)
	}

	if err := svc.Delete(ctx, user.ID, item.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("user delete error = %v, want ErrForbidden", err)
	}
	if err := svc.Delete(ctx, admin.ID, item.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(images.removed) != 1 || images.removed[0] != "/media/poster.png" {
		t.Errorf("removed = %v, want the poster", images.removed)
	}
	if err := svc.Delete(ctx, admin.ID, item.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}

func TestNewsCreate_Validation(t *testing.T) {
	db := newTestStore(t)
	svc := NewNewsService(db, db, testRegions(t), &fakeImages{}, discardLogger())
	admin := createUser(t, db, "admin@example.com", "", model.RoleAdmin)

	base := NewsInput{Title: "t", Content: "c", City: "서울특별시"}
	tests := []struct {
		name  string
		edit  func(*NewsInput)
		field string
	}{
		{"unknown city", func(in *NewsInput) { in.City = "아틀란티스" }, "city"},
		{"bad apply link", func(in *NewsInput) { in.ApplyLink = "javascript:alert(1)" }, "applyLink"},
		{"too many tags", func(in *NewsInput) {
			in.Tags = []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11"}
		}, "tags"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.edit(&in)
			_, err := svc.Create(context.Background(), admin.ID, in)

			var appErr *apperror.AppError
			if !errors.As(err, &appErr) || appErr.Field != tt.field {
				t.Errorf("error = %v, want validation of %s", err, tt.field)
			}
		})
	}
}
