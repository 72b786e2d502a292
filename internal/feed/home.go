package feed

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/maeuln/community/internal/identity"
	"github.com/maeuln/community/internal/live"
	"github.com/maeuln/community/internal/model"
	"github.com/maeuln/community/internal/scope"
)

// HomeView is everything the home screen shows for one client.
type HomeView struct {
	Scope              scope.Scope                      `json:"-"`
	ScopeName          string                           `json:"scope"`
	User               *model.CurrentUser               `json:"user"`
	Loading            bool                             `json:"loading"`
	Posts              []model.Post                     `json:"posts"`
	Popular            []model.Post                     `json:"popular"`
	News               []model.NewsItem                 `json:"news"`
	Following          []model.Post                     `json:"following"`
	FollowingTruncated bool                             `json:"followingTruncated"`
	Events             map[string][]model.CalendarEvent `json:"events"`
}

// homeKey identifies one set of open subscriptions. Any change reopens the
// whole set.
type homeKey struct {
	scope     scope.Scope
	uid       string
	following string
}

type homeUpdate struct {
	gen   uint64
	apply func(v *HomeView)
}

// homeSet is one generation of open subscriptions.
type homeSet struct {
	stop    chan struct{}
	cancels []func()
	wg      sync.WaitGroup
}

// close tears the set down. When it returns no forwarder of this
// generation is running.
func (s *homeSet) close() {
	close(s.stop)
	for _, cancel := range s.cancels {
		cancel()
	}
	s.wg.Wait()
}

// Home follows states and overrides and delivers the latest HomeView. Each
// time the scope, the user or the follow set changes, every subscription of
// the previous view is cancelled before the next set is opened. A reader
// that falls behind only sees the newest view.
//
// overrides carries the admin city selector; "" means nationwide. It may be
// nil. The returned channel is closed once ctx is done or states is closed.
func (a *Aggregator) Home(ctx context.Context, states <-chan identity.State, overrides <-chan string) <-chan HomeView {
	out := make(chan HomeView, 1)
	updates := make(chan homeUpdate)

	go func() {
		defer close(out)

		var (
			state    identity.State
			override string
			key      homeKey
			opened   bool
			gen      uint64
			set      *homeSet
			view     HomeView
		)

		emit := func() {
			v := view
			select {
			case <-out:
			default:
			}
			out <- v
		}

		teardown := func() {
			if set != nil {
				set.close()
				set = nil
			}
		}
		defer teardown()

		rescope := func() {
			next := homeKeyFor(state.User, override)
			if opened && next == key {
				view.User = state.User
				view.Loading = state.Loading
				emit()
				return
			}

			teardown()
			gen++
			key = next
			opened = true
			view = HomeView{
				Scope:     next.scope,
				ScopeName: next.scope.String(),
				User:      state.User,
				Loading:   state.Loading,
				Posts:     []model.Post{},
				Popular:   []model.Post{},
				News:      []model.NewsItem{},
				Following: []model.Post{},
				Events:    map[string][]model.CalendarEvent{},
			}
			set = a.openHome(ctx, gen, state.User, next.scope, updates, &view)
			emit()
		}

		for {
			select {
			case <-ctx.Done():
				return
			case s, ok := <-states:
				if !ok {
					return
				}
				state = s
				rescope()
			case o, ok := <-overrides:
				if !ok {
					overrides = nil
					continue
				}
				override = o
				if opened {
					rescope()
				}
			case u := <-updates:
				if u.gen != gen {
					continue
				}
				u.apply(&view)
				emit()
			}
		}
	}()

	return out
}

func homeKeyFor(user *model.CurrentUser, override string) homeKey {
	k := homeKey{scope: scope.Resolve(user, override)}
	if user != nil {
		k.uid = user.UID
		k.following = strings.Join(user.Following, ",")
	}
	return k
}

// openHome opens one generation of subscriptions. It sets the fields that
// do not come from a subscription directly on view.
func (a *Aggregator) openHome(ctx context.Context, gen uint64, user *model.CurrentUser, sc scope.Scope, updates chan<- homeUpdate, view *HomeView) *homeSet {
	set := &homeSet{stop: make(chan struct{})}

	posts := a.WatchPosts(ctx, sc)
	forward(a, set, gen, "posts", posts, updates, func(v *HomeView, items []model.Post) {
		v.Posts = items
	})

	popular := a.WatchPopular(ctx, sc)
	forward(a, set, gen, "popular", popular, updates, func(v *HomeView, items []model.Post) {
		v.Popular = PopularPosts(items)
	})

	news := a.WatchNews(ctx, sc)
	forward(a, set, gen, "news", news, updates, func(v *HomeView, items []model.NewsItem) {
		v.News = items
	})

	var uid string
	var following []string
	if user != nil {
		uid = user.UID
		following = user.Following
	}
	if !sc.IsEmpty() {
		_, view.FollowingTruncated = FollowingAuthors(following)
		feed := a.WatchFollowing(ctx, following)
		forward(a, set, gen, "following", feed, updates, func(v *HomeView, items []model.Post) {
			v.Following = items
		})
	}

	events := a.WatchEvents(ctx, uid)
	forward(a, set, gen, "events", events, updates, func(v *HomeView, items []model.CalendarEvent) {
		v.Events = GroupEventsByDate(items)
	})

	return set
}

// forward relays the snapshots of sub into updates until sub ends or set is
// closed. A failed snapshot is delivered as an empty list.
func forward[T any](a *Aggregator, set *homeSet, gen uint64, stream string, sub *live.Subscription[T], updates chan<- homeUpdate, apply func(v *HomeView, items []T)) {
	set.cancels = append(set.cancels, sub.Cancel)
	set.wg.Add(1)

	go func() {
		defer set.wg.Done()
		for snap := range sub.C {
			items := snap.Items
			if snap.Err != nil {
				a.logger.Warn("feed: stream failed",
					slog.String("stream", stream),
					slog.String("error", snap.Err.Error()),
				)
				items = nil
			}
			if items == nil {
				items = []T{}
			}
			items = slices.Clip(items)

			u := homeUpdate{gen: gen, apply: func(v *HomeView) { apply(v, items) }}
			select {
			case updates <- u:
			case <-set.stop:
				return
			}
		}
	}()
}
