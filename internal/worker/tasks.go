package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/maeuln/community/internal/event"
)

// Task types.
const (
	TaskCommentCreated = "post:comment_created"
	TaskReportCreated  = "post:report_created"
	TaskRemindUpcoming = "calendar:remind"
)

const maxRetry = 3

// NewCommentTask builds the task for a new comment. The task ID is derived
// from the comment so enqueueing the same event twice is a no-op.
func NewCommentTask(evt event.CommentEvent) (*asynq.Task, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(
		TaskCommentCreated,
		payload,
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(time.Minute),
		asynq.Retention(24*time.Hour),
		asynq.TaskID("comment:"+evt.CommentID),
	), nil
}

// NewReportTask builds the task for a new report.
func NewReportTask(evt event.ReportEvent) (*asynq.Task, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(
		TaskReportCreated,
		payload,
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(time.Minute),
		asynq.Retention(24*time.Hour),
		asynq.TaskID("report:"+evt.ReportID),
	), nil
}

// NewRemindTask builds the periodic reminder sweep. It has no payload: the
// handler sweeps every due event.
func NewRemindTask() *asynq.Task {
	return asynq.NewTask(
		TaskRemindUpcoming,
		nil,
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(5*time.Minute),
		asynq.Unique(5*time.Minute), // prevent a second sweep while one is pending
	)
}

// enqueuer is the part of *asynq.Client the dispatcher uses.
type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client dispatches write events as asynq tasks.
type Client struct {
	client enqueuer
}

var _ event.Dispatcher = (*Client)(nil)

// NewClient connects to the Redis behind redisURL.
func NewClient(redisURL string) (*Client, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("worker: parse redis url: %w", err)
	}
	return &Client{client: asynq.NewClient(opt)}, nil
}

func (c *Client) CommentCreated(ctx context.Context, evt event.CommentEvent) error {
	task, err := NewCommentTask(evt)
	if err != nil {
		return fmt.Errorf("worker: build comment task: %w", err)
	}
	return c.enqueue(ctx, task)
}

func (c *Client) ReportCreated(ctx context.Context, evt event.ReportEvent) error {
	task, err := NewReportTask(evt)
	if err != nil {
		return fmt.Errorf("worker: build report task: %w", err)
	}
	return c.enqueue(ctx, task)
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task) error {
	_, err := c.client.EnqueueContext(ctx, task)
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return fmt.Errorf("worker: enqueue %s: %w", task.Type(), err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}
