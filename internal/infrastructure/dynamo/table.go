package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/videotube-api/internal/domain"
)

// batchWriteLimit is the DynamoDB cap on requests per BatchWriteItem call.
const batchWriteLimit = 25

// table holds the typed CRUD plumbing shared by the single-key content repos.
type table[T any] struct {
	client API
	name   string
	pk     string // partition key attribute
	entity string // used in error messages, e.g. "video"
}

func (t table[T]) key(id string) map[string]types.AttributeValue {
	return strKey(t.pk, id)
}

func (t table[T]) put(ctx context.Context, item *T) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", t.entity, err)
	}
	_, err = t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(t.name),
		Item:      av,
	})
	return err
}

func (t table[T]) get(ctx context.Context, id string) (*T, error) {
	out, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(t.name),
		Key:       t.key(id),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("%s not found: %w", t.entity, domain.ErrNotFound)
	}
	var item T
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// update applies a SET expression to an existing item and returns the new image.
// A missing item yields ErrNotFound instead of an upsert.
func (t table[T]) update(ctx context.Context, id string, updates map[string]interface{}) (*T, error) {
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return nil, err
	}
	ue.Names["#pk"] = t.pk
	out, err := t.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(t.name),
		Key:                       t.key(id),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(#pk)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionFailed(err) {
			return nil, fmt.Errorf("%s not found: %w", t.entity, domain.ErrNotFound)
		}
		return nil, err
	}
	var item T
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (t table[T]) delete(ctx context.Context, id string) error {
	_, err := t.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(t.name),
		Key:       t.key(id),
	})
	return err
}

// queryAll follows LastEvaluatedKey until the query is exhausted.
func (t table[T]) queryAll(ctx context.Context, in *dynamodb.QueryInput) ([]T, error) {
	in.TableName = aws.String(t.name)
	var items []T
	p := dynamodb.NewQueryPaginator(t.client, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var batch []T
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, err
		}
		items = append(items, batch...)
	}
	return items, nil
}

func (t table[T]) scanAll(ctx context.Context, in *dynamodb.ScanInput) ([]T, error) {
	in.TableName = aws.String(t.name)
	var items []T
	p := dynamodb.NewScanPaginator(t.client, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var batch []T
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, err
		}
		items = append(items, batch...)
	}
	return items, nil
}

// countQuery runs the query with Select=COUNT and sums the per-page counts.
func (t table[T]) countQuery(ctx context.Context, in *dynamodb.QueryInput) (int, error) {
	in.TableName = aws.String(t.name)
	in.Select = types.SelectCount
	total := 0
	p := dynamodb.NewQueryPaginator(t.client, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return 0, err
		}
		total += int(page.Count)
	}
	return total, nil
}

func (t table[T]) countScan(ctx context.Context, in *dynamodb.ScanInput) (int, error) {
	in.TableName = aws.String(t.name)
	in.Select = types.SelectCount
	total := 0
	p := dynamodb.NewScanPaginator(t.client, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return 0, err
		}
		total += int(page.Count)
	}
	return total, nil
}

// batchGet loads items by id, dropping ids that no longer exist.
// Order of the result is unspecified.
func (t table[T]) batchGet(ctx context.Context, ids []string, projection string, names map[string]string) ([]T, error) {
	ids = dedupe(ids)
	var items []T
	for _, part := range chunk(ids, 100) {
		keys := make([]map[string]types.AttributeValue, 0, len(part))
		for _, id := range part {
			keys = append(keys, t.key(id))
		}
		ka := types.KeysAndAttributes{Keys: keys}
		if projection != "" {
			ka.ProjectionExpression = aws.String(projection)
			ka.ExpressionAttributeNames = names
		}
		req := map[string]types.KeysAndAttributes{t.name: ka}
		for len(req) > 0 {
			out, err := t.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: req})
			if err != nil {
				return nil, err
			}
			var batch []T
			if err := attributevalue.UnmarshalListOfMaps(out.Responses[t.name], &batch); err != nil {
				return nil, err
			}
			items = append(items, batch...)
			req = out.UnprocessedKeys
		}
	}
	return items, nil
}

// batchDelete removes the given primary keys, resubmitting unprocessed items.
func batchDelete(ctx context.Context, client API, tableName string, keys []map[string]types.AttributeValue) error {
	for _, part := range chunk(keys, batchWriteLimit) {
		reqs := make([]types.WriteRequest, 0, len(part))
		for _, k := range part {
			reqs = append(reqs, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: k}})
		}
		pending := map[string][]types.WriteRequest{tableName: reqs}
		for len(pending) > 0 {
			out, err := client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
			if err != nil {
				return fmt.Errorf("batch delete from %s: %w", tableName, err)
			}
			pending = out.UnprocessedItems
		}
	}
	return nil
}

// ownerQuery selects every item of an owner via the owner GSI, newest first.
func ownerQuery(ownerID string) *dynamodb.QueryInput {
	return &dynamodb.QueryInput{
		IndexName:                 aws.String(indexOwner),
		KeyConditionExpression:    aws.String("#o = :o"),
		ExpressionAttributeNames:  map[string]string{"#o": fieldOwnerID},
		ExpressionAttributeValues: map[string]types.AttributeValue{":o": strVal(ownerID)},
		ScanIndexForward:          aws.Bool(false),
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
