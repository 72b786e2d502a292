package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maeuln/community/internal/apperror"
	"github.com/maeuln/community/internal/model"
	"github.com/maeuln/community/internal/region"
	"github.com/maeuln/community/internal/repository"
)

// ProfileService reads and edits user profiles, including the one-time
// region setup.
type ProfileService struct {
	users   repository.UserRepository
	regions *region.Directory
	logger  *slog.Logger
}

// NewProfileService creates a ProfileService validating regions against regions.
func NewProfileService(users repository.UserRepository, regions *region.Directory, logger *slog.Logger) *ProfileService {
	return &ProfileService{users: users, regions: regions, logger: logger}
}

// ProfileUpdate carries the editable profile fields. Region and city are
// not editable here; see SetupRegion.
type ProfileUpdate struct {
	DisplayName string
	PhotoURL    string
	Town        string
	Bio         string
}

// Get returns the profile of id.
func (s *ProfileService) Get(ctx context.Context, id string) (*model.UserProfile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}
	return s.users.GetUserByID(ctx, id)
}

// Update edits the acting user's own profile.
func (s *ProfileService) Update(ctx context.Context, userID string, in ProfileUpdate) (*model.UserProfile, error) {
	user, err := loadActor(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}

	if user.DisplayName, err = requiredText("displayName", in.DisplayName, MaxNameLength); err != nil {
		return nil, err
	}
	if user.Bio, err = optionalText("bio", in.Bio, MaxBioLength); err != nil {
		return nil, err
	}
	if user.Town, err = optionalText("town", in.Town, MaxNameLength); err != nil {
		return nil, err
	}
	user.PhotoURL = strings.TrimSpace(in.PhotoURL)

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("service/profile: updating user %s: %w", userID, err)
	}
	return user, nil
}

// SetupRegion assigns region, city and town once. The pair must come from
// the region directory. Admins may leave the city empty to browse
// nationwide; everyone else must pick one. A second setup is a conflict.
func (s *ProfileService) SetupRegion(ctx context.Context, userID, regionName, city, town string) (*model.UserProfile, error) {
	user, err := loadActor(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}

	regionName = strings.TrimSpace(regionName)
	city = strings.TrimSpace(city)
	if town, err = optionalText("town", town, MaxNameLength); err != nil {
		return nil, err
	}

	if _, ok := s.regions.Cities(regionName); !ok {
		return nil, apperror.ValidationFailed("region", "unknown region")
	}
	switch {
	case city == "" && !user.IsAdmin():
		return nil, apperror.ValidationFailed("city", "city is required")
	case city != "" && !s.regions.Contains(regionName, city):
		return nil, apperror.ValidationFailed("city", "city does not belong to region")
	}

	if err := s.users.SetRegion(ctx, userID, regionName, city, town); err != nil {
		if errors.Is(err, apperror.ErrConflict) || errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/profile: setting region of %s: %w", userID, err)
	}

	s.logger.Info("region set",
		slog.String("userID", userID),
		slog.String("region", regionName),
		slog.String("city", city),
	)
	return s.users.GetUserByID(ctx, userID)
}

// Regions lists the region directory.
func (s *ProfileService) Regions() []string {
	return s.regions.Regions()
}

// Cities lists the cities of a region.
func (s *ProfileService) Cities(regionName string) ([]string, error) {
	cities, ok := s.regions.Cities(regionName)
	if !ok {
		return nil, apperror.NotFound("region", regionName)
	}
	return cities, nil
}
