package feed

import (
	"slices"

	"github.com/maeuln/community/internal/model"
)

const (
	// PopularCount is how many posts the popular list shows.
	PopularCount = 3
	// FollowingLimit caps the author ids of the following feed query.
	FollowingLimit = 10
)

// PopularPosts returns the most liked posts, most likes first. Posts with
// equal likes keep their input order. The input is not modified.
func PopularPosts(posts []model.Post) []model.Post {
	sorted := slices.Clone(posts)
	slices.SortStableFunc(sorted, func(a, b model.Post) int {
		return b.LikeCount() - a.LikeCount()
	})
	if len(sorted) > PopularCount {
		sorted = sorted[:PopularCount]
	}
	if sorted == nil {
		sorted = []model.Post{}
	}
	return sorted
}

// FollowingAuthors returns the author ids the following feed queries: the
// first FollowingLimit ids in follow order. truncated reports that some
// followed users were left out.
func FollowingAuthors(following []string) (ids []string, truncated bool) {
	if len(following) <= FollowingLimit {
		return slices.Clone(following), false
	}
	return slices.Clone(following[:FollowingLimit]), true
}

// GroupEventsByDate maps each date key to its events in input order. Dates
// without events have no key.
func GroupEventsByDate(events []model.CalendarEvent) map[string][]model.CalendarEvent {
	byDate := make(map[string][]model.CalendarEvent)
	for _, e := range events {
		byDate[e.Date] = append(byDate[e.Date], e)
	}
	return byDate
}
