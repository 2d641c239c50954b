package domain

import (
	"fmt"
	"time"
)

// SubjectType names what a relation or report points at.
type SubjectType string

const (
	SubjectVideo   SubjectType = "video"
	SubjectTweet   SubjectType = "tweet"
	SubjectComment SubjectType = "comment"
	SubjectChannel SubjectType = "channel"
)

// RelationKind distinguishes the toggle families that share the relations table.
type RelationKind string

const (
	RelationLike         RelationKind = "like"
	RelationSubscription RelationKind = "subscription"
	RelationSaved        RelationKind = "saved"
)

// Relation is a membership row keyed by (actor, kind, subject type, subject id).
// PK: actor_id, SK: subject_key. The primary key makes the row unique per key.
type Relation struct {
	ActorID     string       `json:"actorId" dynamodbav:"actor_id"`
	SubjectKey  string       `json:"-" dynamodbav:"subject_key"`
	Kind        RelationKind `json:"kind" dynamodbav:"kind"`
	SubjectType SubjectType  `json:"subjectType" dynamodbav:"subject_type"`
	SubjectID   string       `json:"subjectId" dynamodbav:"subject_id"`
	CreatedAt   time.Time    `json:"createdAt" dynamodbav:"created_at"`
}

func NewRelation(kind RelationKind, actorID string, subjectType SubjectType, subjectID string) Relation {
	return Relation{
		ActorID:     actorID,
		SubjectKey:  SubjectKey(kind, subjectType, subjectID),
		Kind:        kind,
		SubjectType: subjectType,
		SubjectID:   subjectID,
	}
}

// SubjectKey is the sort key shared by all actors relating to one subject.
func SubjectKey(kind RelationKind, subjectType SubjectType, subjectID string) string {
	return fmt.Sprintf("%s#%s#%s", kind, subjectType, subjectID)
}

// SubjectPrefix selects every relation of one kind and subject type for an actor.
func SubjectPrefix(kind RelationKind, subjectType SubjectType) string {
	return fmt.Sprintf("%s#%s#", kind, subjectType)
}

// ContentKey identifies a video, tweet or comment regardless of relation kind.
func ContentKey(subjectType SubjectType, subjectID string) string {
	return fmt.Sprintf("%s#%s", subjectType, subjectID)
}

type ToggleResult string

const (
	ToggleCreated ToggleResult = "created"
	ToggleDeleted ToggleResult = "deleted"
)
