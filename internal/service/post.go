package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maeuln/community/internal/apperror"
	"github.com/maeuln/community/internal/feed"
	"github.com/maeuln/community/internal/model"
	"github.com/maeuln/community/internal/region"
	"github.com/maeuln/community/internal/repository"
	"github.com/maeuln/community/internal/scope"
	"github.com/maeuln/community/internal/storage"
)

// PostService handles the community board.
type PostService struct {
	posts   repository.PostRepository
	users   repository.UserRepository
	regions *region.Directory
	images  storage.Store
	logger  *slog.Logger
}

// NewPostService creates a PostService.
func NewPostService(
	posts repository.PostRepository,
	users repository.UserRepository,
	regions *region.Directory,
	images storage.Store,
	logger *slog.Logger,
) *PostService {
	return &PostService{posts: posts, users: users, regions: regions, images: images, logger: logger}
}

// PostInput is a new post. City is only honoured for admins; everyone else
// posts to their own city.
type PostInput struct {
	Title    string
	Content  string
	Category string
	ImageURL string
	City     string
}

// Create writes a post as userID.
func (s *PostService) Create(ctx context.Context, userID string, in PostInput) (*model.Post, error) {
	author, err := loadActor(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}

	post := &model.Post{
		AuthorID:   author.ID,
		AuthorName: author.DisplayName,
		ImageURL:   strings.TrimSpace(in.ImageURL),
		City:       author.City,
	}
	if post.Title, err = requiredText("title", in.Title, MaxTitleLength); err != nil {
		return nil, err
	}
	if post.Content, err = requiredText("content", in.Content, MaxContentLength); err != nil {
		return nil, err
	}
	if post.Category, err = requiredText("category", in.Category, MaxCategoryLength); err != nil {
		return nil, err
	}

	if author.IsAdmin() {
		if city := strings.TrimSpace(in.City); city != "" {
			if !s.regions.HasCity(city) {
				return nil, apperror.ValidationFailed("city", "unknown city")
			}
			post.City = city
		}
	}
	if post.City == "" {
		return nil, apperror.ValidationFailed("city", "set your region before posting")
	}

	if err := s.posts.CreatePost(ctx, post); err != nil {
		s.logger.Error("failed to create post",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/post: creating post: %w", err)
	}

	s.logger.Info("post created",
		slog.String("id", post.ID),
		slog.String("city", post.City),
	)
	return post, nil
}

// Get returns one post.
func (s *PostService) Get(ctx context.Context, id string) (*model.Post, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "post ID is required")
	}
	return s.posts.GetPost(ctx, id)
}

// List returns the posts in sc, newest first. An empty scope lists nothing.
func (s *PostService) List(ctx context.Context, sc scope.Scope, category string, limit, offset int) ([]model.Post, error) {
	if sc.IsEmpty() {
		return []model.Post{}, nil
	}

	posts, err := s.posts.ListPosts(ctx, repository.PostFilter{
		City:        sc.City,
		Category:    strings.TrimSpace(category),
		ListOptions: clampList(limit, offset),
	})
	if err != nil {
		return nil, fmt.Errorf("service/post: listing posts: %w", err)
	}
	return posts, nil
}

// Popular returns the feed.PopularCount most liked posts in sc. Posts with
// equal likes keep newest first.
func (s *PostService) Popular(ctx context.Context, sc scope.Scope) ([]model.Post, error) {
	if sc.IsEmpty() {
		return []model.Post{}, nil
	}

	posts, err := s.posts.ListPosts(ctx, repository.PostFilter{
		City:        sc.City,
		ByLikes:     true,
		ListOptions: repository.ListOptions{Limit: feed.PopularCount},
	})
	if err != nil {
		return nil, fmt.Errorf("service/post: listing popular posts: %w", err)
	}
	return posts, nil
}

// Following returns the latest posts of the authors userID follows. Only
// the first feed.FollowingLimit followed users are included; truncated
// reports that some were left out.
func (s *PostService) Following(ctx context.Context, userID string) (posts []model.Post, truncated bool, err error) {
	user, err := loadActor(ctx, s.users, userID)
	if err != nil {
		return nil, false, err
	}

	ids, truncated := feed.FollowingAuthors(user.Following)
	if len(ids) == 0 {
		return []model.Post{}, false, nil
	}

	posts, err = s.posts.ListPosts(ctx, repository.PostFilter{
		AuthorIDs:   ids,
		ListOptions: clampList(DefaultListLimit, 0),
	})
	if err != nil {
		return nil, false, fmt.Errorf("service/post: listing following posts: %w", err)
	}
	return posts, truncated, nil
}

// Delete removes a post. Only its author or an admin may do so. The post's
// image is released afterwards; a failed release is only logged.
func (s *PostService) Delete(ctx context.Context, userID, postID string) error {
	actor, err := loadActor(ctx, s.users, userID)
	if err != nil {
		return err
	}

	post, err := s.Get(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != actor.ID && !actor.IsAdmin() {
		return apperror.Forbidden("you can only delete your own posts")
	}

	if err := s.posts.DeletePost(ctx, post.ID); err != nil {
		return err
	}
	s.logger.Info("post deleted",
		slog.String("id", post.ID),
		slog.String("by", actor.ID),
	)

	releaseImage(ctx, s.images, post.ImageURL, s.logger)
	return nil
}

// releaseImage removes a stored image, logging failures.
func releaseImage(ctx context.Context, images storage.Store, url string, logger *slog.Logger) {
	if url == "" || images == nil {
		return
	}
	if err := images.Remove(context.WithoutCancel(ctx), url); err != nil {
		logger.Warn("failed to release image",
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
	}
}
