package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/videotube-api/internal/domain"
)

// maxToggleAttempts bounds the put/delete loop when concurrent toggles keep
// flipping the row between our two conditional writes.
const maxToggleAttempts = 5

var errToggleContended = errors.New("relation toggle contended")

// RelationRepo stores likes, subscriptions and saved tweets as membership rows.
// PK: actor_id, SK: subject_key ("<kind>#<type>#<id>"). GSI on (subject_key, actor_id).
type RelationRepo struct {
	t table[domain.Relation]
}

func NewRelationRepo(client API, tableName string) *RelationRepo {
	return &RelationRepo{t: table[domain.Relation]{client: client, name: tableName, pk: fieldActorID, entity: "relation"}}
}

func (r *RelationRepo) key(actorID, subjectKey string) map[string]types.AttributeValue {
	return compositeKey(fieldActorID, actorID, fieldSubjectKey, subjectKey)
}

// Toggle creates the row if absent or deletes it if present. Each branch is a
// single conditional write, so concurrent toggles never leave two rows and
// every successful call flips membership exactly once.
func (r *RelationRepo) Toggle(ctx context.Context, rel domain.Relation) (domain.ToggleResult, error) {
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = time.Now().UTC()
	}
	item, err := attributevalue.MarshalMap(rel)
	if err != nil {
		return "", fmt.Errorf("marshal relation: %w", err)
	}
	names := map[string]string{"#a": fieldActorID}
	for attempt := 0; attempt < maxToggleAttempts; attempt++ {
		_, err := r.t.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:                aws.String(r.t.name),
			Item:                     item,
			ConditionExpression:      aws.String("attribute_not_exists(#a)"),
			ExpressionAttributeNames: names,
		})
		if err == nil {
			return domain.ToggleCreated, nil
		}
		if !isConditionFailed(err) {
			return "", err
		}

		_, err = r.t.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName:                aws.String(r.t.name),
			Key:                      r.key(rel.ActorID, rel.SubjectKey),
			ConditionExpression:      aws.String("attribute_exists(#a)"),
			ExpressionAttributeNames: names,
		})
		if err == nil {
			return domain.ToggleDeleted, nil
		}
		if !isConditionFailed(err) {
			return "", err
		}
		// Another request deleted the row between our writes; try again.
	}
	return "", errToggleContended
}

func (r *RelationRepo) Exists(ctx context.Context, actorID, subjectKey string) (bool, error) {
	out, err := r.t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:                aws.String(r.t.name),
		Key:                      r.key(actorID, subjectKey),
		ProjectionExpression:     aws.String("#a"),
		ExpressionAttributeNames: map[string]string{"#a": fieldActorID},
	})
	if err != nil {
		return false, err
	}
	return out.Item != nil, nil
}

// ListByActor returns the actor's relations whose subject key starts with prefix.
func (r *RelationRepo) ListByActor(ctx context.Context, actorID, prefix string) ([]domain.Relation, error) {
	return r.t.queryAll(ctx, actorPrefixQuery(actorID, prefix))
}

func (r *RelationRepo) CountByActor(ctx context.Context, actorID, prefix string) (int, error) {
	return r.t.countQuery(ctx, actorPrefixQuery(actorID, prefix))
}

// ListBySubject returns every actor's relation to one subject key.
func (r *RelationRepo) ListBySubject(ctx context.Context, subjectKey string) ([]domain.Relation, error) {
	return r.t.queryAll(ctx, subjectQuery(subjectKey))
}

func (r *RelationRepo) CountBySubject(ctx context.Context, subjectKey string) (int, error) {
	return r.t.countQuery(ctx, subjectQuery(subjectKey))
}

// DeleteByActor removes every relation the actor created.
func (r *RelationRepo) DeleteByActor(ctx context.Context, actorID string) error {
	rels, err := r.t.queryAll(ctx, actorPrefixQuery(actorID, ""))
	if err != nil {
		return err
	}
	return r.deleteRows(ctx, rels)
}

// DeleteBySubject removes every relation pointing at the subject key.
func (r *RelationRepo) DeleteBySubject(ctx context.Context, subjectKey string) error {
	rels, err := r.t.queryAll(ctx, subjectQuery(subjectKey))
	if err != nil {
		return err
	}
	return r.deleteRows(ctx, rels)
}

func (r *RelationRepo) deleteRows(ctx context.Context, rels []domain.Relation) error {
	keys := make([]map[string]types.AttributeValue, 0, len(rels))
	for _, rel := range rels {
		keys = append(keys, r.key(rel.ActorID, rel.SubjectKey))
	}
	return batchDelete(ctx, r.t.client, r.t.name, keys)
}

func actorPrefixQuery(actorID, prefix string) *dynamodb.QueryInput {
	in := &dynamodb.QueryInput{
		KeyConditionExpression:    aws.String("#a = :a"),
		ExpressionAttributeNames:  map[string]string{"#a": fieldActorID},
		ExpressionAttributeValues: map[string]types.AttributeValue{":a": strVal(actorID)},
	}
	if prefix != "" {
		in.KeyConditionExpression = aws.String("#a = :a AND begins_with(#s, :p)")
		in.ExpressionAttributeNames["#s"] = fieldSubjectKey
		in.ExpressionAttributeValues[":p"] = strVal(prefix)
	}
	return in
}

func subjectQuery(subjectKey string) *dynamodb.QueryInput {
	return &dynamodb.QueryInput{
		IndexName:                 aws.String(indexSubject),
		KeyConditionExpression:    aws.String("#s = :s"),
		ExpressionAttributeNames:  map[string]string{"#s": fieldSubjectKey},
		ExpressionAttributeValues: map[string]types.AttributeValue{":s": strVal(subjectKey)},
	}
}
