package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/videotube-api/internal/domain"
	"github.com/videotube-api/internal/pkg/id"
)

type Service interface {
	// Report files or replaces the caller's report on one piece of content.
	// A second report from the same user only changes the issue.
	Report(ctx context.Context, reporterID string, subjectType domain.SubjectType, subjectID, issue string) (*domain.Report, error)
}

type reportStore interface {
	Upsert(ctx context.Context, rep *domain.Report) (*domain.Report, error)
}

type videoStore interface {
	Get(ctx context.Context, videoID string) (*domain.Video, error)
}

type tweetStore interface {
	Get(ctx context.Context, tweetID string) (*domain.Tweet, error)
}

type commentStore interface {
	Get(ctx context.Context, commentID string) (*domain.Comment, error)
}

type ServiceDeps struct {
	ReportRepo  reportStore
	VideoRepo   videoStore
	TweetRepo   tweetStore
	CommentRepo commentStore
}

type service struct {
	reports  reportStore
	videos   videoStore
	tweets   tweetStore
	comments commentStore
}

func NewService(deps ServiceDeps) Service {
	return &service{
		reports:  deps.ReportRepo,
		videos:   deps.VideoRepo,
		tweets:   deps.TweetRepo,
		comments: deps.CommentRepo,
	}
}

func (s *service) Report(ctx context.Context, reporterID string, subjectType domain.SubjectType, subjectID, issue string) (*domain.Report, error) {
	issue = strings.TrimSpace(issue)
	if !domain.ValidReportIssue(issue) {
		return nil, fmt.Errorf("unknown report issue %q: %w", issue, domain.ErrBadRequest)
	}
	if err := id.Check(string(subjectType), subjectID); err != nil {
		return nil, err
	}

	var err error
	switch subjectType {
	case domain.SubjectVideo:
		_, err = s.videos.Get(ctx, subjectID)
	case domain.SubjectTweet:
		_, err = s.tweets.Get(ctx, subjectID)
	case domain.SubjectComment:
		_, err = s.comments.Get(ctx, subjectID)
	default:
		return nil, fmt.Errorf("cannot report a %q: %w", subjectType, domain.ErrBadRequest)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%s does not exist: %w", subjectType, domain.ErrNotFound)
		}
		return nil, err
	}

	return s.reports.Upsert(ctx, &domain.Report{
		SubjectKey:  domain.ContentKey(subjectType, subjectID),
		ReporterID:  reporterID,
		SubjectType: subjectType,
		SubjectID:   subjectID,
		Issue:       issue,
	})
}
