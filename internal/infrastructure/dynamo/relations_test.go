package dynamo

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/videotube-api/internal/domain"
)

// fakeRelations honours the attribute_not_exists / attribute_exists conditions
// the toggle relies on. Methods not used by Toggle panic via the nil embed.
type fakeRelations struct {
	API
	mu      sync.Mutex
	rows    map[string]map[string]types.AttributeValue
	failPut error
}

func newFakeRelations() *fakeRelations {
	return &fakeRelations{rows: map[string]map[string]types.AttributeValue{}}
}

func rowKey(item map[string]types.AttributeValue) string {
	a := item[fieldActorID].(*types.AttributeValueMemberS).Value
	s := item[fieldSubjectKey].(*types.AttributeValueMemberS).Value
	return a + "|" + s
}

func (f *fakeRelations) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut != nil {
		return nil, f.failPut
	}
	k := rowKey(in.Item)
	if _, ok := f.rows[k]; ok && in.ConditionExpression != nil {
		return nil, &types.ConditionalCheckFailedException{}
	}
	f.rows[k] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeRelations) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := rowKey(in.Key)
	if _, ok := f.rows[k]; !ok && in.ConditionExpression != nil {
		return nil, &types.ConditionalCheckFailedException{}
	}
	delete(f.rows, k)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeRelations) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func TestToggle_IsSelfInverse(t *testing.T) {
	fake := newFakeRelations()
	repo := NewRelationRepo(fake, "relations")
	rel := domain.NewRelation(domain.RelationLike, "u1", domain.SubjectVideo, "v1")

	res, err := repo.Toggle(context.Background(), rel)
	require.NoError(t, err)
	assert.Equal(t, domain.ToggleCreated, res)
	assert.Equal(t, 1, fake.count())

	res, err = repo.Toggle(context.Background(), rel)
	require.NoError(t, err)
	assert.Equal(t, domain.ToggleDeleted, res)
	assert.Equal(t, 0, fake.count())
}

func TestToggle_KeysAreIndependent(t *testing.T) {
	fake := newFakeRelations()
	repo := NewRelationRepo(fake, "relations")

	_, err := repo.Toggle(context.Background(), domain.NewRelation(domain.RelationLike, "u1", domain.SubjectVideo, "v1"))
	require.NoError(t, err)
	_, err = repo.Toggle(context.Background(), domain.NewRelation(domain.RelationLike, "u1", domain.SubjectTweet, "v1"))
	require.NoError(t, err)
	_, err = repo.Toggle(context.Background(), domain.NewRelation(domain.RelationLike, "u2", domain.SubjectVideo, "v1"))
	require.NoError(t, err)

	assert.Equal(t, 3, fake.count())
}

func TestToggle_ConcurrentCallsNeverDuplicate(t *testing.T) {
	fake := newFakeRelations()
	repo := NewRelationRepo(fake, "relations")
	rel := domain.NewRelation(domain.RelationSubscription, "u1", domain.SubjectChannel, "c1")

	const calls = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	created, deleted := 0, 0
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := repo.Toggle(context.Background(), rel)
			if errors.Is(err, errToggleContended) {
				return
			}
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if res == domain.ToggleCreated {
				created++
			} else {
				deleted++
			}
		}()
	}
	wg.Wait()

	rows := fake.count()
	assert.LessOrEqual(t, rows, 1)
	assert.Equal(t, created-deleted, rows, "every successful call flips membership exactly once")
}

func TestToggle_PropagatesStoreErrors(t *testing.T) {
	fake := newFakeRelations()
	fake.failPut = errors.New("throttled")
	repo := NewRelationRepo(fake, "relations")

	_, err := repo.Toggle(context.Background(), domain.NewRelation(domain.RelationSaved, "u1", domain.SubjectTweet, "t1"))
	assert.ErrorContains(t, err, "throttled")
}
