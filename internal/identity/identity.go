// Package identity turns a sign-in session into the live CurrentUser view.
//
// A Resolver belongs to one connected client. It holds at most one profile
// subscription at a time: signing in again replaces it, signing out drops
// it. Every change of the profile record produces a new merged state.
package identity

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/maeuln/community/internal/apperror"
	"github.com/maeuln/community/internal/live"
	"github.com/maeuln/community/internal/model"
)

// Session is what the authentication layer knows about a signed-in user.
type Session struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
}

// State is one resolver output. User is nil when signed out. Loading is true
// between sign-in and the first profile snapshot.
type State struct {
	User    *model.CurrentUser
	Loading bool
}

// Merge combines the session with the stored profile. Profile values win
// unless they are empty. A nil profile yields the session-only user.
func Merge(session Session, profile *model.UserProfile) model.CurrentUser {
	u := model.CurrentUser{
		UID:         session.UID,
		Email:       session.Email,
		DisplayName: session.DisplayName,
		PhotoURL:    session.PhotoURL,
		LikedNews:   []string{},
		Following:   []string{},
		Followers:   []string{},
	}

	if profile != nil {
		u.Email = prefer(profile.Email, u.Email)
		u.DisplayName = prefer(profile.DisplayName, u.DisplayName)
		u.PhotoURL = prefer(profile.PhotoURL, u.PhotoURL)
		u.Region = profile.Region
		u.City = profile.City
		u.Town = profile.Town
		u.Role = profile.Role
		u.Bio = profile.Bio
		if profile.LikedNews != nil {
			u.LikedNews = profile.LikedNews
		}
		if profile.Following != nil {
			u.Following = profile.Following
		}
		if profile.Followers != nil {
			u.Followers = profile.Followers
		}
		u.IsAdmin = profile.Role == model.RoleAdmin
		u.ProfileLoaded = true
	}

	u.PhotoURL = SecureURL(u.PhotoURL)
	return u
}

func prefer(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

// SecureURL rewrites an http:// URL to https://.
func SecureURL(u string) string {
	if rest, ok := strings.CutPrefix(u, "http://"); ok {
		return "https://" + rest
	}
	return u
}

// ProfileSource loads profile records.
type ProfileSource interface {
	GetUserByID(ctx context.Context, id string) (*model.UserProfile, error)
}

// Resolver produces States for one client.
type Resolver struct {
	broker   *live.Broker
	profiles ProfileSource
	logger   *slog.Logger

	out chan State

	mu      sync.Mutex
	gen     uint64
	sub     *live.Subscription[model.UserProfile]
	current State
	closed  bool
	wg      sync.WaitGroup
}

// NewResolver creates a signed-out Resolver. Call Close when done.
func NewResolver(broker *live.Broker, profiles ProfileSource, logger *slog.Logger) *Resolver {
	return &Resolver{
		broker:   broker,
		profiles: profiles,
		logger:   logger,
		out:      make(chan State, 1),
	}
}

// States delivers the latest state. A slow reader only sees the newest one.
// The channel is closed by Close.
func (r *Resolver) States() <-chan State {
	return r.out
}

// Current returns the last emitted state.
func (r *Resolver) Current() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// SignIn starts resolving session, replacing any previous session.
func (r *Resolver) SignIn(session Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	r.stopLocked()
	gen := r.gen

	sessionOnly := Merge(session, nil)
	r.emitLocked(State{User: &sessionOnly, Loading: true})

	uid := session.UID
	sub := live.Subscribe(context.Background(), r.broker, []string{live.UserTopic(uid)},
		func(ctx context.Context) ([]model.UserProfile, error) {
			p, err := r.profiles.GetUserByID(ctx, uid)
			if err != nil {
				if errors.Is(err, apperror.ErrNotFound) {
					return nil, nil
				}
				return nil, err
			}
			return []model.UserProfile{*p}, nil
		})
	r.sub = sub

	r.wg.Add(1)
	go r.forward(gen, session, sub)
}

// SignOut emits a nil user immediately and drops the profile subscription.
func (r *Resolver) SignOut() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	r.stopLocked()
	r.emitLocked(State{})
}

// Close stops the resolver and closes States. It is idempotent.
func (r *Resolver) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.stopLocked()
	r.mu.Unlock()

	r.wg.Wait()
	close(r.out)
}

// stopLocked invalidates the current generation and cancels its
// subscription. Cancel is synchronous, so no profile snapshot of the old
// session is produced after it returns.
func (r *Resolver) stopLocked() {
	r.gen++
	if r.sub != nil {
		r.sub.Cancel()
		r.sub = nil
	}
}

func (r *Resolver) forward(gen uint64, session Session, sub *live.Subscription[model.UserProfile]) {
	defer r.wg.Done()

	for snap := range sub.C {
		var state State
		switch {
		case snap.Err != nil:
			r.logger.Warn("identity: profile subscription failed",
				slog.String("uid", session.UID),
				slog.String("error", snap.Err.Error()),
			)
			u := Merge(session, nil)
			state = State{User: &u}
		case len(snap.Items) == 0:
			u := Merge(session, nil)
			state = State{User: &u}
		default:
			u := Merge(session, &snap.Items[0])
			state = State{User: &u}
		}

		r.mu.Lock()
		if r.gen == gen && !r.closed {
			r.emitLocked(state)
		}
		r.mu.Unlock()
	}
}

// emitLocked replaces any undelivered state with s.
func (r *Resolver) emitLocked(s State) {
	r.current = s
	select {
	case <-r.out:
	default:
	}
	r.out <- s
}
