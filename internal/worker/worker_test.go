package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maeuln/community/internal/event"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTriggers struct {
	mu       sync.Mutex
	comments []event.CommentEvent
	reports  []event.ReportEvent
	sweeps   []time.Time
	err      error
}

func (f *fakeTriggers) CommentCreated(_ context.Context, evt event.CommentEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comments = append(f.comments, evt)
	return f.err
}

func (f *fakeTriggers) ReportCreated(_ context.Context, evt event.ReportEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, evt)
	return f.err
}

func (f *fakeTriggers) RemindUpcoming(_ context.Context, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweeps = append(f.sweeps, now)
	return 1, f.err
}

func (f *fakeTriggers) sweepCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sweeps)
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	if f.err != nil {
		return nil, f.err
	}
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

func TestClient_EnqueuesEvents(t *testing.T) {
	q := &fakeEnqueuer{}
	c := &Client{client: q}
	ctx := context.Background()

	require.NoError(t, c.CommentCreated(ctx, event.CommentEvent{PostID: "p1", CommentID: "c1", AuthorID: "u2"}))
	require.NoError(t, c.ReportCreated(ctx, event.ReportEvent{PostID: "p1", ReportID: "r1", ReporterID: "u3"}))

	require.Len(t, q.tasks, 2)
	assert.Equal(t, TaskCommentCreated, q.tasks[0].Type())
	assert.Equal(t, TaskReportCreated, q.tasks[1].Type())

	var evt event.CommentEvent
	require.NoError(t, json.Unmarshal(q.tasks[0].Payload(), &evt))
	assert.Equal(t, event.CommentEvent{PostID: "p1", CommentID: "c1", AuthorID: "u2"}, evt)
}

func TestClient_DuplicateEnqueueIsNotAnError(t *testing.T) {
	c := &Client{client: &fakeEnqueuer{err: asynq.ErrTaskIDConflict}}

	err := c.CommentCreated(context.Background(), event.CommentEvent{PostID: "p1", CommentID: "c1"})
	assert.NoError(t, err)
}

func TestClient_EnqueueFailure(t *testing.T) {
	c := &Client{client: &fakeEnqueuer{err: errors.New("redis down")}}

	err := c.ReportCreated(context.Background(), event.ReportEvent{PostID: "p1", ReportID: "r1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), TaskReportCreated)
}

func TestHandlers_DecodeAndDispatch(t *testing.T) {
	triggers := &fakeTriggers{}
	logger := discardLogger()

	comment, err := NewCommentTask(event.CommentEvent{PostID: "p1", CommentID: "c1", AuthorID: "u2"})
	require.NoError(t, err)
	require.NoError(t, handleCommentCreated(logger, triggers)(context.Background(), comment))

	report, err := NewReportTask(event.ReportEvent{PostID: "p1", ReportID: "r1", ReporterID: "u3"})
	require.NoError(t, err)
	require.NoError(t, handleReportCreated(logger, triggers)(context.Background(), report))

	assert.Equal(t, []event.CommentEvent{{PostID: "p1", CommentID: "c1", AuthorID: "u2"}}, triggers.comments)
	assert.Equal(t, []event.ReportEvent{{PostID: "p1", ReportID: "r1", ReporterID: "u3"}}, triggers.reports)
}

func TestHandlers_MalformedPayloadSkipsRetry(t *testing.T) {
	triggers := &fakeTriggers{}
	logger := discardLogger()

	tests := []struct {
		name    string
		handler asynq.HandlerFunc
		task    *asynq.Task
	}{
		{"comment not json", handleCommentCreated(logger, triggers), asynq.NewTask(TaskCommentCreated, []byte("{"))},
		{"comment without post", handleCommentCreated(logger, triggers), asynq.NewTask(TaskCommentCreated, []byte(`{}`))},
		{"report not json", handleReportCreated(logger, triggers), asynq.NewTask(TaskReportCreated, []byte("nope"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.handler(context.Background(), tt.task)
			assert.ErrorIs(t, err, asynq.SkipRetry)
		})
	}
	assert.Empty(t, triggers.comments)
	assert.Empty(t, triggers.reports)
}

func TestHandlers_TriggerErrorIsRetried(t *testing.T) {
	triggers := &fakeTriggers{err: errors.New("database is locked")}

	task, err := NewCommentTask(event.CommentEvent{PostID: "p1", CommentID: "c1"})
	require.NoError(t, err)

	err = handleCommentCreated(discardLogger(), triggers)(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleRemindUpcoming_UsesClock(t *testing.T) {
	triggers := &fakeTriggers{}
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	err := handleRemindUpcoming(discardLogger(), triggers, func() time.Time { return now })(context.Background(), NewRemindTask())
	require.NoError(t, err)
	assert.Equal(t, []time.Time{now}, triggers.sweeps)
}

func TestRunTicker(t *testing.T) {
	triggers := &fakeTriggers{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- RunTicker(ctx, 10*time.Millisecond, triggers, discardLogger()) }()

	assert.Eventually(t, func() bool { return triggers.sweepCount() >= 3 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("RunTicker did not return after cancel")
	}
}

func TestTickerInterval(t *testing.T) {
	assert.Equal(t, 10*time.Minute, TickerInterval("@every 10m"))
	assert.Equal(t, 30*time.Second, TickerInterval("@every 30s"))
	assert.Equal(t, 10*time.Minute, TickerInterval("*/10 * * * *"))
	assert.Equal(t, 10*time.Minute, TickerInterval(""))
}
