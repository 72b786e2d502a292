// Package feed maintains the live lists the home screen is built from: city
// posts, popular posts, city news, the following feed and the calendar.
//
// Every list is a live.Subscription re-delivered in full on each relevant
// write. Which lists exist, and with which filters, follows from the scope
// (see package scope) and the signed-in user.
package feed

import (
	"context"
	"log/slog"

	"github.com/maeuln/community/internal/live"
	"github.com/maeuln/community/internal/model"
	"github.com/maeuln/community/internal/repository"
	"github.com/maeuln/community/internal/scope"
)

// Store runs the list queries.
type Store interface {
	ListPosts(ctx context.Context, filter repository.PostFilter) ([]model.Post, error)
	ListNews(ctx context.Context, filter repository.NewsFilter) ([]model.NewsItem, error)
	ListEvents(ctx context.Context, userID string, filter repository.EventFilter) ([]model.CalendarEvent, error)
}

// Aggregator opens live lists.
type Aggregator struct {
	broker *live.Broker
	store  Store
	logger *slog.Logger
	limit  int
}

// New returns an Aggregator whose lists hold at most 50 items.
func New(broker *live.Broker, store Store, logger *slog.Logger) *Aggregator {
	return &Aggregator{broker: broker, store: store, logger: logger, limit: 50}
}

// WatchPosts lists posts in scope, newest first. An empty scope yields one
// empty snapshot and never queries.
func (a *Aggregator) WatchPosts(ctx context.Context, sc scope.Scope) *live.Subscription[model.Post] {
	if sc.IsEmpty() {
		return live.Static([]model.Post{})
	}

	filter := repository.PostFilter{City: sc.City, ListOptions: repository.ListOptions{Limit: a.limit}}
	return live.Subscribe(ctx, a.broker, []string{live.TopicPosts},
		func(ctx context.Context) ([]model.Post, error) {
			return a.store.ListPosts(ctx, filter)
		})
}

// WatchPopular lists the PopularCount most liked posts in scope. The
// ranking covers every post in scope, not only the newest.
func (a *Aggregator) WatchPopular(ctx context.Context, sc scope.Scope) *live.Subscription[model.Post] {
	if sc.IsEmpty() {
		return live.Static([]model.Post{})
	}

	filter := repository.PostFilter{City: sc.City, ByLikes: true, ListOptions: repository.ListOptions{Limit: PopularCount}}
	return live.Subscribe(ctx, a.broker, []string{live.TopicPosts},
		func(ctx context.Context) ([]model.Post, error) {
			return a.store.ListPosts(ctx, filter)
		})
}

// WatchNews lists news in scope, newest first.
func (a *Aggregator) WatchNews(ctx context.Context, sc scope.Scope) *live.Subscription[model.NewsItem] {
	if sc.IsEmpty() {
		return live.Static([]model.NewsItem{})
	}

	filter := repository.NewsFilter{City: sc.City, ListOptions: repository.ListOptions{Limit: a.limit}}
	return live.Subscribe(ctx, a.broker, []string{live.TopicNews},
		func(ctx context.Context) ([]model.NewsItem, error) {
			return a.store.ListNews(ctx, filter)
		})
}

// WatchEvents lists the user's calendar in date order.
func (a *Aggregator) WatchEvents(ctx context.Context, userID string) *live.Subscription[model.CalendarEvent] {
	if userID == "" {
		return live.Static([]model.CalendarEvent{})
	}

	return live.Subscribe(ctx, a.broker, []string{live.EventsTopic(userID)},
		func(ctx context.Context) ([]model.CalendarEvent, error) {
			return a.store.ListEvents(ctx, userID, repository.EventFilter{})
		})
}

// WatchFollowing lists posts by the followed authors, newest first. An
// empty follow set opens nothing. Only the first FollowingLimit authors are
// queried.
func (a *Aggregator) WatchFollowing(ctx context.Context, following []string) *live.Subscription[model.Post] {
	ids, truncated := FollowingAuthors(following)
	if len(ids) == 0 {
		return live.Static([]model.Post{})
	}
	if truncated {
		a.logger.Info("following feed truncated",
			slog.Int("following", len(following)),
			slog.Int("queried", len(ids)),
		)
	}

	filter := repository.PostFilter{AuthorIDs: ids, ListOptions: repository.ListOptions{Limit: a.limit}}
	return live.Subscribe(ctx, a.broker, []string{live.TopicPosts},
		func(ctx context.Context) ([]model.Post, error) {
			return a.store.ListPosts(ctx, filter)
		})
}
