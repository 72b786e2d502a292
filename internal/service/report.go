package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maeuln/community/internal/apperror"
	"github.com/maeuln/community/internal/event"
	"github.com/maeuln/community/internal/model"
	"github.com/maeuln/community/internal/repository"
)

// ReportService files reports against posts and dispatches ReportCreated.
type ReportService struct {
	reports    repository.ReportRepository
	dispatcher event.Dispatcher
	logger     *slog.Logger
}

// NewReportService creates a ReportService.
func NewReportService(reports repository.ReportRepository, dispatcher event.Dispatcher, logger *slog.Logger) *ReportService {
	return &ReportService{reports: reports, dispatcher: dispatcher, logger: logger}
}

// Create files a report as userID. A user can report a post once.
//
// Reporting a post that is already gone, typically removed by moderation a
// moment earlier, succeeds without storing anything or dispatching an
// event. The returned report then has no ID.
func (s *ReportService) Create(ctx context.Context, userID, postID, reason string) (*model.Report, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return nil, apperror.ValidationFailed("postId", "post ID is required")
	}

	report := &model.Report{PostID: postID, ReporterID: userID}
	var err error
	if report.Reason, err = optionalText("reason", reason, MaxReasonLength); err != nil {
		return nil, err
	}

	if err := s.reports.CreateReport(ctx, report); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Info("report on missing post ignored",
				slog.String("postID", postID),
				slog.String("userID", userID),
			)
			report.ID = ""
			return report, nil
		}
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/report: creating report: %w", err)
	}

	s.logger.Info("post reported",
		slog.String("postID", postID),
		slog.String("reportID", report.ID),
	)

	evt := event.ReportEvent{PostID: postID, ReportID: report.ID, ReporterID: userID}
	if err := s.dispatcher.ReportCreated(ctx, evt); err != nil {
		s.logger.Error("failed to dispatch report event",
			slog.String("reportID", report.ID),
			slog.String("error", err.Error()),
		)
	}
	return report, nil
}
