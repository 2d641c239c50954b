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

// UserRepo provides typed DynamoDB operations for the users table.
type UserRepo struct {
	t table[domain.User]
}

func NewUserRepo(client API, tableName string) *UserRepo {
	return &UserRepo{t: table[domain.User]{client: client, name: tableName, pk: fieldUserID, entity: "user"}}
}

// Uniqueness guards live in the users table under prefixed keys that can
// never collide with a ULID. Each guard row names the user holding the value.
const (
	guardEmail     = "email#"
	guardUsername  = "username#"
	fieldClaimedBy = "claimed_by"

	cancelConditionFailed = "ConditionalCheckFailed"
)

// Put inserts a new user together with its email and username guards in one
// transaction. A taken email or username, or an existing user_id, is a conflict.
func (r *UserRepo) Put(ctx context.Context, u *domain.User) error {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = r.t.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(r.t.name),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(user_id)"),
			}},
			r.claim(guardEmail, u.Email, u.UserID),
			r.claim(guardUsername, u.Username, u.UserID),
		},
	})
	return claimError(err, []string{
		"user already exists",
		"user with email already exists",
		"user with username already exists",
	})
}

func (r *UserRepo) claim(prefix, value, userID string) types.TransactWriteItem {
	return types.TransactWriteItem{Put: &types.Put{
		TableName: aws.String(r.t.name),
		Item: map[string]types.AttributeValue{
			fieldUserID:    strVal(prefix + value),
			fieldClaimedBy: strVal(userID),
		},
		ConditionExpression:      aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": fieldUserID},
	}}
}

// release drops a guard held by userID. A missing guard is accepted so rows
// written before guards existed can still be updated and deleted.
func (r *UserRepo) release(prefix, value, userID string) types.TransactWriteItem {
	return types.TransactWriteItem{Delete: &types.Delete{
		TableName:                aws.String(r.t.name),
		Key:                      strKey(fieldUserID, prefix+value),
		ConditionExpression:      aws.String("attribute_not_exists(#id) OR #by = :uid"),
		ExpressionAttributeNames: map[string]string{"#id": fieldUserID, "#by": fieldClaimedBy},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": strVal(userID),
		},
	}}
}

// claimError maps a cancelled transaction to ErrConflict, using the message of
// the first item whose condition failed. msgs is indexed like TransactItems.
func claimError(err error, msgs []string) error {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return err
	}
	for i, reason := range tce.CancellationReasons {
		if aws.ToString(reason.Code) == cancelConditionFailed && i < len(msgs) {
			return fmt.Errorf("%s: %w", msgs[i], domain.ErrConflict)
		}
	}
	return fmt.Errorf("concurrent account change: %w", domain.ErrConflict)
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	return r.t.get(ctx, userID)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.queryGSI(ctx, indexUsername, "username", username)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.queryGSI(ctx, indexEmail, "email", email)
}

// Update applies a partial update. Changing email or username moves the
// matching guards in the same transaction as the user write.
func (r *UserRepo) Update(ctx context.Context, userID string, updates map[string]interface{}) (*domain.User, error) {
	fields := stamped(updates)
	_, email := fields[fieldEmail]
	_, username := fields[fieldUsername]
	if !email && !username {
		return r.t.update(ctx, userID, fields)
	}
	return r.updateIdentity(ctx, userID, fields)
}

func (r *UserRepo) updateIdentity(ctx context.Context, userID string, fields map[string]interface{}) (*domain.User, error) {
	cur, err := r.t.get(ctx, userID)
	if err != nil {
		return nil, err
	}
	ue, err := buildUpdateExpr(fields)
	if err != nil {
		return nil, err
	}
	// The user row must still carry the identity read above, otherwise a
	// concurrent change would leave a guard behind.
	ue.Names["#pk"] = fieldUserID
	ue.Names["#cur_em"] = fieldEmail
	ue.Names["#cur_un"] = fieldUsername
	if ue.Values == nil {
		ue.Values = map[string]types.AttributeValue{}
	}
	ue.Values[":cur_em"] = strVal(cur.Email)
	ue.Values[":cur_un"] = strVal(cur.Username)

	items := []types.TransactWriteItem{{Update: &types.Update{
		TableName:                 aws.String(r.t.name),
		Key:                       r.t.key(userID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(#pk) AND #cur_em = :cur_em AND #cur_un = :cur_un"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	}}}
	msgs := []string{"account changed concurrently"}

	if v, ok := fields[fieldEmail].(string); ok && v != cur.Email {
		items = append(items, r.claim(guardEmail, v, userID), r.release(guardEmail, cur.Email, userID))
		msgs = append(msgs, "email already registered", "email guard held by another user")
	}
	if v, ok := fields[fieldUsername].(string); ok && v != cur.Username {
		items = append(items, r.claim(guardUsername, v, userID), r.release(guardUsername, cur.Username, userID))
		msgs = append(msgs, "username already taken", "username guard held by another user")
	}

	_, err = r.t.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err := claimError(err, msgs); err != nil {
		return nil, err
	}
	return r.t.get(ctx, userID)
}

// SwapRefreshToken replaces the stored refresh token only if it still equals
// expected. An empty expected also matches a user that never held a token.
// A lost race or a stale expected value yields ErrUnauthorized.
func (r *UserRepo) SwapRefreshToken(ctx context.Context, userID, expected, next string) error {
	cond := "attribute_exists(#id) AND #rt = :expected"
	if expected == "" {
		cond = "attribute_exists(#id) AND (attribute_not_exists(#rt) OR #rt = :expected)"
	}
	_, err := r.t.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(r.t.name),
		Key:                      strKey(fieldUserID, userID),
		UpdateExpression:         aws.String("SET #rt = :next, #u = :now"),
		ConditionExpression:      aws.String(cond),
		ExpressionAttributeNames: map[string]string{"#id": fieldUserID, "#rt": fieldRefreshToken, "#u": fieldUpdatedAt},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":next":     strVal(next),
			":expected": strVal(expected),
			":now":      strVal(time.Now().UTC().Format(time.RFC3339Nano)),
		},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("refresh token superseded: %w", domain.ErrUnauthorized)
	}
	return err
}

// Delete removes the user and releases its guards. A missing user is a no-op.
func (r *UserRepo) Delete(ctx context.Context, userID string) error {
	u, err := r.t.get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = r.t.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: &types.Delete{TableName: aws.String(r.t.name), Key: r.t.key(userID)}},
			r.release(guardEmail, u.Email, userID),
			r.release(guardUsername, u.Username, userID),
		},
	})
	return claimError(err, nil)
}

// BatchGetOwners loads the public profile projection for each id.
// Ids with no matching user are absent from the result.
func (r *UserRepo) BatchGetOwners(ctx context.Context, ids []string) (map[string]domain.Owner, error) {
	users, err := r.t.batchGet(ctx, ids, "#id, #un, #fn, #av", map[string]string{
		"#id": fieldUserID,
		"#un": "username",
		"#fn": "full_name",
		"#av": "avatar",
	})
	if err != nil {
		return nil, err
	}
	owners := make(map[string]domain.Owner, len(users))
	for i := range users {
		owners[users[i].UserID] = users[i].Owner()
	}
	return owners, nil
}

func (r *UserRepo) queryGSI(ctx context.Context, index, attr, value string) (*domain.User, error) {
	out, err := r.t.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.t.name),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": strVal(value)},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Items[0], &u); err != nil {
		return nil, err
	}
	return &u, nil
}
