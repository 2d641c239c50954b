package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/videotube-api/internal/domain"
)

// CommentRepo stores comments on videos and tweets.
// PK: comment_id. GSIs on (parent_key, created_at) and (owner_id, created_at).
type CommentRepo struct {
	t table[domain.Comment]
}

func NewCommentRepo(client API, tableName string) *CommentRepo {
	return &CommentRepo{t: table[domain.Comment]{client: client, name: tableName, pk: "comment_id", entity: "comment"}}
}

func (r *CommentRepo) Put(ctx context.Context, c *domain.Comment) error { return r.t.put(ctx, c) }

func (r *CommentRepo) Get(ctx context.Context, commentID string) (*domain.Comment, error) {
	return r.t.get(ctx, commentID)
}

func (r *CommentRepo) Update(ctx context.Context, commentID string, updates map[string]interface{}) (*domain.Comment, error) {
	return r.t.update(ctx, commentID, stamped(updates))
}

func (r *CommentRepo) Delete(ctx context.Context, commentID string) error {
	return r.t.delete(ctx, commentID)
}

func (r *CommentRepo) ListByParent(ctx context.Context, parentKey string) ([]domain.Comment, error) {
	return r.t.queryAll(ctx, parentQuery(parentKey))
}

func (r *CommentRepo) CountByParent(ctx context.Context, parentKey string) (int, error) {
	return r.t.countQuery(ctx, parentQuery(parentKey))
}

// DeleteByParent removes every comment under parentKey and returns their ids.
func (r *CommentRepo) DeleteByParent(ctx context.Context, parentKey string) ([]string, error) {
	comments, err := r.ListByParent(ctx, parentKey)
	if err != nil {
		return nil, err
	}
	return r.deleteAll(ctx, comments)
}

// DeleteByOwner removes every comment the user wrote and returns their ids.
func (r *CommentRepo) DeleteByOwner(ctx context.Context, ownerID string) ([]string, error) {
	comments, err := r.t.queryAll(ctx, ownerQuery(ownerID))
	if err != nil {
		return nil, err
	}
	return r.deleteAll(ctx, comments)
}

func (r *CommentRepo) deleteAll(ctx context.Context, comments []domain.Comment) ([]string, error) {
	ids := make([]string, 0, len(comments))
	keys := make([]map[string]types.AttributeValue, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.CommentID)
		keys = append(keys, r.t.key(c.CommentID))
	}
	if err := batchDelete(ctx, r.t.client, r.t.name, keys); err != nil {
		return nil, err
	}
	return ids, nil
}

func parentQuery(parentKey string) *dynamodb.QueryInput {
	return &dynamodb.QueryInput{
		IndexName:                 aws.String(indexParent),
		KeyConditionExpression:    aws.String("#p = :p"),
		ExpressionAttributeNames:  map[string]string{"#p": fieldParentKey},
		ExpressionAttributeValues: map[string]types.AttributeValue{":p": strVal(parentKey)},
		ScanIndexForward:          aws.Bool(false),
	}
}
