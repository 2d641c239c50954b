package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/videotube-api/internal/domain"
)

// TweetRepo provides typed DynamoDB operations for the tweets table.
type TweetRepo struct {
	t table[domain.Tweet]
}

func NewTweetRepo(client API, tableName string) *TweetRepo {
	return &TweetRepo{t: table[domain.Tweet]{client: client, name: tableName, pk: "tweet_id", entity: "tweet"}}
}

func (r *TweetRepo) Put(ctx context.Context, t *domain.Tweet) error { return r.t.put(ctx, t) }

func (r *TweetRepo) Get(ctx context.Context, tweetID string) (*domain.Tweet, error) {
	return r.t.get(ctx, tweetID)
}

func (r *TweetRepo) Update(ctx context.Context, tweetID string, updates map[string]interface{}) (*domain.Tweet, error) {
	return r.t.update(ctx, tweetID, stamped(updates))
}

func (r *TweetRepo) Delete(ctx context.Context, tweetID string) error {
	return r.t.delete(ctx, tweetID)
}

func (r *TweetRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.Tweet, error) {
	return r.t.queryAll(ctx, ownerQuery(ownerID))
}

func (r *TweetRepo) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	return r.t.countQuery(ctx, ownerQuery(ownerID))
}

func (r *TweetRepo) ListAll(ctx context.Context) ([]domain.Tweet, error) {
	return r.t.scanAll(ctx, &dynamodb.ScanInput{})
}

func (r *TweetRepo) CountAll(ctx context.Context) (int, error) {
	return r.t.countScan(ctx, &dynamodb.ScanInput{})
}

func (r *TweetRepo) BatchGet(ctx context.Context, ids []string) ([]domain.Tweet, error) {
	return r.t.batchGet(ctx, ids, "", nil)
}

func (r *TweetRepo) DeleteByOwner(ctx context.Context, ownerID string) ([]string, error) {
	tweets, err := r.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(tweets))
	keys := make([]map[string]types.AttributeValue, 0, len(tweets))
	for _, t := range tweets {
		ids = append(ids, t.TweetID)
		keys = append(keys, r.t.key(t.TweetID))
	}
	return ids, batchDelete(ctx, r.t.client, r.t.name, keys)
}
