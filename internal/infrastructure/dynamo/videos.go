package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/videotube-api/internal/domain"
)

// VideoRepo provides typed DynamoDB operations for the videos table.
type VideoRepo struct {
	t table[domain.Video]
}

func NewVideoRepo(client API, tableName string) *VideoRepo {
	return &VideoRepo{t: table[domain.Video]{client: client, name: tableName, pk: "video_id", entity: "video"}}
}

func (r *VideoRepo) Put(ctx context.Context, v *domain.Video) error { return r.t.put(ctx, v) }

func (r *VideoRepo) Get(ctx context.Context, videoID string) (*domain.Video, error) {
	return r.t.get(ctx, videoID)
}

func (r *VideoRepo) Update(ctx context.Context, videoID string, updates map[string]interface{}) (*domain.Video, error) {
	return r.t.update(ctx, videoID, stamped(updates))
}

func (r *VideoRepo) Delete(ctx context.Context, videoID string) error {
	return r.t.delete(ctx, videoID)
}

func (r *VideoRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.Video, error) {
	return r.t.queryAll(ctx, ownerQuery(ownerID))
}

func (r *VideoRepo) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	return r.t.countQuery(ctx, ownerQuery(ownerID))
}

func (r *VideoRepo) ListPublished(ctx context.Context) ([]domain.Video, error) {
	return r.t.scanAll(ctx, publishedScan())
}

func (r *VideoRepo) CountPublished(ctx context.Context) (int, error) {
	return r.t.countScan(ctx, publishedScan())
}

func (r *VideoRepo) BatchGet(ctx context.Context, ids []string) ([]domain.Video, error) {
	return r.t.batchGet(ctx, ids, "", nil)
}

func (r *VideoRepo) DeleteByOwner(ctx context.Context, ownerID string) ([]string, error) {
	videos, err := r.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(videos))
	keys := make([]map[string]types.AttributeValue, 0, len(videos))
	for _, v := range videos {
		ids = append(ids, v.VideoID)
		keys = append(keys, r.t.key(v.VideoID))
	}
	return ids, batchDelete(ctx, r.t.client, r.t.name, keys)
}

func publishedScan() *dynamodb.ScanInput {
	return &dynamodb.ScanInput{
		FilterExpression:          aws.String("#p = :t"),
		ExpressionAttributeNames:  map[string]string{"#p": fieldIsPublished},
		ExpressionAttributeValues: map[string]types.AttributeValue{":t": &types.AttributeValueMemberBOOL{Value: true}},
	}
}
