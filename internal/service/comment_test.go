package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/maeuln/community/internal/apperror"
	"github.com/maeuln/community/internal/event"
	"github.com/maeuln/community/internal/model"
)

func TestCommentCreate_Dispatches(t *testing.T) {
	posts, db, _ := newTestPostService(t)
	dispatcher := &recordingDispatcher{}
	svc := NewCommentService(db, db, dispatcher, discardLogger())
	ctx := context.Background()

	author := createUser(t, db, "a@example.com", "서울특별시", model.RoleUser)
	commenter := createUser(t, db, "c@example.com", "서울특별시", model.RoleUser)
	post, err := posts.Create(ctx, author.ID, validPost("글"))
	if err != nil {
		t.Fatal(err)
	}

	comment, err := svc.Create(ctx, commenter.ID, post.ID, " 좋은 글이네요 ")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if comment.Content != "좋은 글이네요" || comment.AuthorName != commenter.DisplayName {
		t.Errorf("comment = %+v", comment)
	}

	want := []event.CommentEvent{{PostID: post.ID, CommentID: comment.ID, AuthorID: commenter.ID}}
	if len(dispatcher.comments) != 1 || dispatcher.comments[0] != want[0] {
		t.Errorf("dispatched = %+v, want %+v", dispatcher.comments, want)
	}

	list, err := svc.List(ctx, post.ID)
	if err != nil || len(list) != 1 {
		t.Errorf("List() = %v, %v", list, err)
	}
}

func TestCommentCreate_DispatchFailureIsNotFatal(t *testing.T) {
	posts, db, _ := newTestPostService(t)
	svc := NewCommentService(db, db, &recordingDispatcher{err: errors.New("redis down")}, discardLogger())
	ctx := context.Background()

	author := createUser(t, db, "a@example.com", "서울특별시", model.RoleUser)
	post, err := posts.Create(ctx, author.ID, validPost("글"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Create(ctx, author.ID, post.ID, "댓글"); err != nil {
		t.Errorf("Create() error = %v, want nil", err)
	}
}

func TestCommentCreate_Errors(t *testing.T) {
	db := newTestStore(t)
	dispatcher := &recordingDispatcher{}
	svc := NewCommentService(db, db, dispatcher, discardLogger())
	ctx := context.Background()

	user := createUser(t, db, "a@example.com", "서울특별시", model.RoleUser)

	if _, err := svc.Create(ctx, user.ID, "missing-post", "댓글"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("missing post error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Create(ctx, user.ID, "p1", "   "); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("blank content error = %v, want ErrValidation", err)
	}
	if len(dispatcher.comments) != 0 {
		t.Errorf("failed writes dispatched %d events", len(dispatcher.comments))
	}
}

func TestReportCreate(t *testing.T) {
	posts, db, _ := newTestPostService(t)
	dispatcher := &recordingDispatcher{}
	svc := NewReportService(db, dispatcher, discardLogger())
	ctx := context.Background()

	author := createUser(t, db, "a@example.com", "서울특별시", model.RoleUser)
	reporter := createUser(t, db, "r@example.com", "서울특별시", model.RoleUser)
	post, err := posts.Create(ctx, author.ID, validPost("글"))
	if err != nil {
		t.Fatal(err)
	}

	report, err := svc.Create(ctx, reporter.ID, post.ID, "광고")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(dispatcher.reports) != 1 || dispatcher.reports[0].ReportID != report.ID {
		t.Errorf("dispatched = %+v", dispatcher.reports)
	}

	if _, err := svc.Create(ctx, reporter.ID, post.ID, "again"); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("duplicate report error = %v, want ErrConflict", err)
	}
	if _, err := svc.Create(ctx, "", post.ID, ""); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("signed out error = %v, want ErrUnauthorized", err)
	}
	if len(dispatcher.reports) != 1 {
		t.Errorf("got %d dispatched reports, want 1", len(dispatcher.reports))
	}
}

func TestReportCreate_AfterModerationDeleteIsNoop(t *testing.T) {
	posts, db, _ := newTestPostService(t)
	dispatcher := &recordingDispatcher{}
	svc := NewReportService(db, dispatcher, discardLogger())
	ctx := context.Background()

	author := createUser(t, db, "a@example.com", "서울특별시", model.RoleUser)
	post, err := posts.Create(ctx, author.ID, validPost("글"))
	if err != nil {
		t.Fatal(err)
	}
	for i := range 10 {
		reporter := createUser(t, db, fmt.Sprintf("r%d@example.com", i), "서울특별시", model.RoleUser)
		if _, err := svc.Create(ctx, reporter.ID, post.ID, ""); err != nil {
			t.Fatalf("report %d: %v", i, err)
		}
	}
	if deleted, err := db.DeletePostIfReported(ctx, post.ID, 10); err != nil || deleted == nil {
		t.Fatalf("DeletePostIfReported() = %v, %v", deleted, err)
	}
	dispatched := len(dispatcher.reports)

	late := createUser(t, db, "late@example.com", "서울특별시", model.RoleUser)
	report, err := svc.Create(ctx, late.ID, post.ID, "")
	if err != nil {
		t.Fatalf("late report error = %v, want nil", err)
	}
	if report.ID != "" {
		t.Errorf("late report ID = %q, want empty", report.ID)
	}
	if len(dispatcher.reports) != dispatched {
		t.Errorf("late report dispatched an event")
	}
	if n, err := db.CountReports(ctx, post.ID); err != nil || n != 0 {
		t.Errorf("CountReports() = %d, %v; want 0", n, err)
	}

	if _, err := svc.Create(ctx, late.ID, "missing", ""); err != nil {
		t.Errorf("report on unknown post error = %v, want nil", err)
	}
}
