// Package cascade removes the rows that hang off a deleted video, tweet or
// comment: child comments, relations pointing at it, reports filed against
// it, and for videos their playlist entries.
package cascade

import (
	"context"
	"errors"
	"fmt"

	"github.com/videotube-api/internal/domain"
	"go.uber.org/zap"
)

type commentStore interface {
	DeleteByParent(ctx context.Context, parentKey string) ([]string, error)
}

type relationStore interface {
	DeleteBySubject(ctx context.Context, subjectKey string) error
}

type reportStore interface {
	DeleteBySubject(ctx context.Context, subjectKey string) error
}

type playlistStore interface {
	RemoveVideoEverywhere(ctx context.Context, videoID string) error
}

type ServiceDeps struct {
	CommentRepo  commentStore
	RelationRepo relationStore
	ReportRepo   reportStore
	PlaylistRepo playlistStore
	Logger       *zap.Logger
}

// Purger runs the dependent-row cleanup after a subject row is deleted.
type Purger struct {
	comments  commentStore
	relations relationStore
	reports   reportStore
	playlists playlistStore
	log       *zap.Logger
}

func NewPurger(deps ServiceDeps) *Purger {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Purger{
		comments:  deps.CommentRepo,
		relations: deps.RelationRepo,
		reports:   deps.ReportRepo,
		playlists: deps.PlaylistRepo,
		log:       log,
	}
}

// relationKinds lists the relations that can point at each subject type.
var relationKinds = map[domain.SubjectType][]domain.RelationKind{
	domain.SubjectVideo:   {domain.RelationLike},
	domain.SubjectTweet:   {domain.RelationLike, domain.RelationSaved},
	domain.SubjectComment: {domain.RelationLike},
}

// Purge removes everything that refers to the subject. Every step runs even
// when an earlier one fails; the failures are joined.
func (p *Purger) Purge(ctx context.Context, subjectType domain.SubjectType, subjectID string) error {
	kinds, ok := relationKinds[subjectType]
	if !ok {
		return fmt.Errorf("cannot purge %s: %w", subjectType, domain.ErrBadRequest)
	}
	key := domain.ContentKey(subjectType, subjectID)

	var errs []error
	step := func(name string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if subjectType != domain.SubjectComment {
		ids, err := p.comments.DeleteByParent(ctx, key)
		step("delete comments", err)
		step("purge comments", p.Comments(ctx, ids))
	}
	for _, kind := range kinds {
		step("delete "+string(kind)+" relations", p.relations.DeleteBySubject(ctx, domain.SubjectKey(kind, subjectType, subjectID)))
	}
	step("delete reports", p.reports.DeleteBySubject(ctx, key))
	if subjectType == domain.SubjectVideo {
		step("remove from playlists", p.playlists.RemoveVideoEverywhere(ctx, subjectID))
	}

	err := errors.Join(errs...)
	if err != nil {
		p.log.Error("purge incomplete",
			zap.String("subject_type", string(subjectType)),
			zap.String("subject_id", subjectID),
			zap.Error(err))
	}
	return err
}

// Comments purges the likes and reports of already deleted comments.
func (p *Purger) Comments(ctx context.Context, commentIDs []string) error {
	var errs []error
	for _, id := range commentIDs {
		if err := p.Purge(ctx, domain.SubjectComment, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
