package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/maeuln/community/internal/auth"
	"github.com/maeuln/community/internal/feed"
	"github.com/maeuln/community/internal/identity"
	"github.com/maeuln/community/internal/live"
	"github.com/maeuln/community/internal/model"
	"github.com/maeuln/community/internal/service"
)

// keepAliveInterval is how often an idle stream sends a comment line so
// proxies do not close it.
const keepAliveInterval = 25 * time.Second

// StreamHandler serves live views as server-sent events. Every event
// carries the complete current view, never a delta.
type StreamHandler struct {
	broker        *live.Broker
	aggregator    *feed.Aggregator
	profiles      identity.ProfileSource
	notifications *service.NotificationService
	logger        *slog.Logger

	closing   chan struct{}
	closeOnce sync.Once
}

// NewStreamHandler creates a StreamHandler. Call Shutdown to end open streams.
func NewStreamHandler(
	broker *live.Broker,
	aggregator *feed.Aggregator,
	profiles identity.ProfileSource,
	notifications *service.NotificationService,
	logger *slog.Logger,
) *StreamHandler {
	return &StreamHandler{
		broker:        broker,
		aggregator:    aggregator,
		profiles:      profiles,
		notifications: notifications,
		logger:        logger,
		closing:       make(chan struct{}),
	}
}

// Shutdown ends every open stream. http.Server.Shutdown does not cancel
// the requests it waits for, so the server calls this when it stops.
func (h *StreamHandler) Shutdown() {
	h.closeOnce.Do(func() { close(h.closing) })
}

type notificationsView struct {
	Items  []model.Notification `json:"items"`
	Unread int                  `json:"unread"`
}

// HandleHome streams the home view of the caller.
//
// HTTP: GET /api/stream/home?city=
//
// Each connection owns one identity resolver and one aggregator loop. When
// the client disconnects both are torn down with every subscription they
// opened. ?city= is the admin city selector.
func (h *StreamHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	flusher, ok := startStream(w)
	if !ok {
		return
	}

	ctx := r.Context()
	connID := uuid.NewString()
	logger := h.logger.With(slog.String("conn", connID), slog.String("stream", "home"))

	resolver := identity.NewResolver(h.broker, h.profiles, logger)
	defer resolver.Close()

	if session, ok := auth.SessionFromContext(ctx); ok {
		resolver.SignIn(session)
	} else {
		resolver.SignOut()
	}

	overrides := make(chan string, 1)
	if city := r.URL.Query().Get("city"); city != "" {
		overrides <- city
	}
	close(overrides)

	views := h.aggregator.Home(ctx, resolver.States(), overrides)

	logger.Debug("stream opened")
	defer logger.Debug("stream closed")

	pump(ctx, h.closing, w, flusher, logger, "home", views)
}

// HandleNotifications streams the caller's notifications.
//
// HTTP: GET /api/stream/notifications
func (h *StreamHandler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	uid := currentUserID(r)
	if uid == "" {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	flusher, ok := startStream(w)
	if !ok {
		return
	}

	ctx := r.Context()
	logger := h.logger.With(slog.String("conn", uuid.NewString()), slog.String("stream", "notifications"))

	sub := live.Subscribe(ctx, h.broker, []string{live.NotificationsTopic(uid)},
		func(ctx context.Context) ([]model.Notification, error) {
			return h.notifications.List(ctx, uid, 0, 0)
		})
	defer sub.Cancel()

	views := make(chan notificationsView, 1)
	go func() {
		defer close(views)
		for snap := range sub.C {
			items := snap.Items
			if snap.Err != nil {
				logger.Warn("notification stream failed", slog.String("error", snap.Err.Error()))
				items = nil
			}
			if items == nil {
				items = []model.Notification{}
			}

			v := notificationsView{Items: items}
			for _, n := range items {
				if !n.IsRead {
					v.Unread++
				}
			}

			select {
			case <-views:
			default:
			}
			views <- v
		}
	}()

	pump(ctx, h.closing, w, flusher, logger, "notifications", views)
}

// startStream writes the event-stream headers. It fails with 500 when the
// ResponseWriter cannot flush.
func startStream(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "streaming unsupported",
		})
		return nil, false
	}

	// Streams outlive the server's write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return flusher, true
}

// pump writes every value of views as one event until ctx is done, closing
// is closed, views is closed or a write fails.
func pump[T any](ctx context.Context, closing <-chan struct{}, w http.ResponseWriter, flusher http.Flusher, logger *slog.Logger, name string, views <-chan T) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-closing:
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case v, ok := <-views:
			if !ok {
				return
			}
			if err := writeEvent(w, name, v); err != nil {
				logger.Debug("stream write failed", slog.String("error", err.Error()))
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", name, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}
