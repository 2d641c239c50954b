package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/videotube-api/internal/domain"
	"go.uber.org/zap"
)

// RefreshTokenRepo tracks issued refresh tokens and their rotation families.
// PK: token_id. GSIs on family_id and user_id. TTL on expires_at.
type RefreshTokenRepo struct {
	t   table[domain.RefreshToken]
	log *zap.Logger
}

func NewRefreshTokenRepo(client API, tableName string, log *zap.Logger) *RefreshTokenRepo {
	return &RefreshTokenRepo{
		t:   table[domain.RefreshToken]{client: client, name: tableName, pk: "token_id", entity: "refresh token"},
		log: log,
	}
}

func (r *RefreshTokenRepo) Put(ctx context.Context, rt *domain.RefreshToken) error {
	return r.t.put(ctx, rt)
}

func (r *RefreshTokenRepo) Get(ctx context.Context, tokenID string) (*domain.RefreshToken, error) {
	return r.t.get(ctx, tokenID)
}

// MarkSpent flips a live token to spent. Only one caller can win; a token that
// is already spent or revoked yields ErrUnauthorized.
func (r *RefreshTokenRepo) MarkSpent(ctx context.Context, tokenID string) error {
	_, err := r.t.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(r.t.name),
		Key:                      r.t.key(tokenID),
		UpdateExpression:         aws.String("SET #s = :t"),
		ConditionExpression:      aws.String("attribute_exists(token_id) AND #s = :f AND #r = :f"),
		ExpressionAttributeNames: map[string]string{"#s": fieldSpent, "#r": fieldRevoked},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberBOOL{Value: true},
			":f": &types.AttributeValueMemberBOOL{Value: false},
		},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("refresh token already used: %w", domain.ErrUnauthorized)
	}
	return err
}

// RevokeFamily marks every token of the family revoked. It keeps going past
// individual failures and returns the first one.
func (r *RefreshTokenRepo) RevokeFamily(ctx context.Context, familyID string) error {
	tokens, err := r.t.queryAll(ctx, &dynamodb.QueryInput{
		IndexName:                 aws.String(indexFamily),
		KeyConditionExpression:    aws.String("family_id = :f"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":f": strVal(familyID)},
	})
	if err != nil {
		return err
	}
	var firstErr error
	for _, tok := range tokens {
		if _, err := r.t.update(ctx, tok.TokenID, map[string]interface{}{fieldRevoked: true}); err != nil {
			r.log.Warn("failed to revoke refresh token", zap.String("token_id", tok.TokenID), zap.String("family_id", familyID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *RefreshTokenRepo) DeleteByUser(ctx context.Context, userID string) error {
	tokens, err := r.t.queryAll(ctx, &dynamodb.QueryInput{
		IndexName:                 aws.String(indexTokenUser),
		KeyConditionExpression:    aws.String("user_id = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":u": strVal(userID)},
	})
	if err != nil {
		return err
	}
	keys := make([]map[string]types.AttributeValue, 0, len(tokens))
	for _, tok := range tokens {
		keys = append(keys, r.t.key(tok.TokenID))
	}
	return batchDelete(ctx, r.t.client, r.t.name, keys)
}
