package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/maeuln/community/internal/apperror"
	"github.com/maeuln/community/internal/model"
	"github.com/maeuln/community/internal/region"
	"github.com/maeuln/community/internal/repository"
	"github.com/maeuln/community/internal/scope"
	"github.com/maeuln/community/internal/storage"
)

// NewsService publishes local news. Only admins write news.
type NewsService struct {
	news    repository.NewsRepository
	users   repository.UserRepository
	regions *region.Directory
	images  storage.Store
	logger  *slog.Logger
}

// NewNewsService creates a NewsService.
func NewNewsService(
	news repository.NewsRepository,
	users repository.UserRepository,
	regions *region.Directory,
	images storage.Store,
	logger *slog.Logger,
) *NewsService {
	return &NewsService{news: news, users: users, regions: regions, images: images, logger: logger}
}

// NewsInput is a new news item.
type NewsInput struct {
	Title     string
	Content   string
	ImageURL  string
	ApplyLink string
	City      string
	Tags      []string
}

// Create publishes a news item for one city.
func (s *NewsService) Create(ctx context.Context, userID string, in NewsInput) (*model.NewsItem, error) {
	if err := s.requireAdmin(ctx, userID); err != nil {
		return nil, err
	}

	item := &model.NewsItem{ImageURL: strings.TrimSpace(in.ImageURL)}
	var err error
	if item.Title, err = requiredText("title", in.Title, MaxTitleLength); err != nil {
		return nil, err
	}
	if item.Content, err = requiredText("content", in.Content, MaxContentLength); err != nil {
		return nil, err
	}
	if item.City = strings.TrimSpace(in.City); !s.regions.HasCity(item.City) {
		return nil, apperror.ValidationFailed("city", "unknown city")
	}
	if item.ApplyLink = strings.TrimSpace(in.ApplyLink); item.ApplyLink != "" {
		u, err := url.Parse(item.ApplyLink)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, apperror.ValidationFailed("applyLink", "apply link must be an http(s) URL")
		}
	}
	if item.Tags, err = normalizeTags(in.Tags); err != nil {
		return nil, err
	}

	if err := s.news.CreateNews(ctx, item); err != nil {
		return nil, fmt.Errorf("service/news: creating news: %w", err)
	}

	s.logger.Info("news created",
		slog.String("id", item.ID),
		slog.String("city", item.City),
	)
	return item, nil
}

// List returns the news in sc, newest first.
func (s *NewsService) List(ctx context.Context, sc scope.Scope, limit, offset int) ([]model.NewsItem, error) {
	if sc.IsEmpty() {
		return []model.NewsItem{}, nil
	}

	items, err := s.news.ListNews(ctx, repository.NewsFilter{City: sc.City, ListOptions: clampList(limit, offset)})
	if err != nil {
		return nil, fmt.Errorf("service/news: listing news: %w", err)
	}
	return items, nil
}

// Delete removes a news item and releases its image.
func (s *NewsService) Delete(ctx context.Context, userID, newsID string) error {
	if err := s.requireAdmin(ctx, userID); err != nil {
		return err
	}

	item, err := s.news.GetNews(ctx, strings.TrimSpace(newsID))
	if err != nil {
		return err
	}
	if err := s.news.DeleteNews(ctx, item.ID); err != nil {
		return err
	}

	s.logger.Info("news deleted", slog.String("id", item.ID))
	releaseImage(ctx, s.images, item.ImageURL, s.logger)
	return nil
}

func (s *NewsService) requireAdmin(ctx context.Context, userID string) error {
	user, err := loadActor(ctx, s.users, userID)
	if err != nil {
		return err
	}
	if !user.IsAdmin() {
		return apperror.Forbidden("only admins can manage news")
	}
	return nil
}

// normalizeTags trims, drops blanks and duplicates, keeping order.
func normalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) > MaxTagCount {
		return nil, apperror.ValidationFailed("tags", fmt.Sprintf("at most %d tags are allowed", MaxTagCount))
	}
	return out, nil
}
