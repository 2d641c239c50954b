package dynamo

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/videotube-api/internal/config"
	"go.uber.org/zap"
)

// Bootstrap creates all DynamoDB tables and GSIs if they don't already exist.
// Safe to call on every startup; existing tables are skipped.
func Bootstrap(ctx context.Context, client *dynamodb.Client, tables config.DynamoTables, log *zap.Logger) {
	b := bootstrapper{client: client, log: log}

	b.createTable(ctx, &dynamodb.CreateTableInput{
		TableName:            aws.String(tables.Users),
		BillingMode:          types.BillingModePayPerRequest,
		AttributeDefinitions: attrs(fieldUserID, "username", "email"),
		KeySchema:            keySchema(fieldUserID, ""),
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			gsi(indexUsername, "username", ""),
			gsi(indexEmail, "email", ""),
		},
	})

	b.createTable(ctx, &dynamodb.CreateTableInput{
		TableName:            aws.String(tables.Registrations),
		BillingMode:          types.BillingModePayPerRequest,
		AttributeDefinitions: attrs("email"),
		KeySchema:            keySchema("email", ""),
	})
	b.enableTTL(ctx, tables.Registrations, "expires_at")

	b.createTable(ctx, &dynamodb.CreateTableInput{
		TableName:            aws.String(tables.RefreshTokens),
		BillingMode:          types.BillingModePayPerRequest,
		AttributeDefinitions: attrs("token_id", "family_id", fieldUserID),
		KeySchema:            keySchema("token_id", ""),
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			gsi(indexFamily, "family_id", ""),
			gsi(indexTokenUser, fieldUserID, ""),
		},
	})
	b.enableTTL(ctx, tables.RefreshTokens, "expires_at")

	for _, content := range []struct{ name, pk string }{
		{tables.Videos, "video_id"},
		{tables.Tweets, "tweet_id"},
		{tables.Playlists, "playlist_id"},
	} {
		b.createTable(ctx, &dynamodb.CreateTableInput{
			TableName:            aws.String(content.name),
			BillingMode:          types.BillingModePayPerRequest,
			AttributeDefinitions: attrs(content.pk, fieldOwnerID, fieldCreatedAt),
			KeySchema:            keySchema(content.pk, ""),
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
				gsi(indexOwner, fieldOwnerID, fieldCreatedAt),
			},
		})
	}

	b.createTable(ctx, &dynamodb.CreateTableInput{
		TableName:            aws.String(tables.Comments),
		BillingMode:          types.BillingModePayPerRequest,
		AttributeDefinitions: attrs("comment_id", fieldParentKey, fieldOwnerID, fieldCreatedAt),
		KeySchema:            keySchema("comment_id", ""),
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			gsi(indexParent, fieldParentKey, fieldCreatedAt),
			gsi(indexOwner, fieldOwnerID, fieldCreatedAt),
		},
	})

	b.createTable(ctx, &dynamodb.CreateTableInput{
		TableName:            aws.String(tables.Relations),
		BillingMode:          types.BillingModePayPerRequest,
		AttributeDefinitions: attrs(fieldActorID, fieldSubjectKey),
		KeySchema:            keySchema(fieldActorID, fieldSubjectKey),
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			gsi(indexSubject, fieldSubjectKey, fieldActorID),
		},
	})

	b.createTable(ctx, &dynamodb.CreateTableInput{
		TableName:            aws.String(tables.Reports),
		BillingMode:          types.BillingModePayPerRequest,
		AttributeDefinitions: attrs(fieldSubjectKey, fieldReporterID),
		KeySchema:            keySchema(fieldSubjectKey, fieldReporterID),
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			gsi(indexReporter, fieldReporterID, ""),
		},
	})
}

type bootstrapper struct {
	client *dynamodb.Client
	log    *zap.Logger
}

// attrs declares string key attributes.
func attrs(names ...string) []types.AttributeDefinition {
	defs := make([]types.AttributeDefinition, 0, len(names))
	for _, n := range names {
		defs = append(defs, types.AttributeDefinition{AttributeName: aws.String(n), AttributeType: types.ScalarAttributeTypeS})
	}
	return defs
}

func keySchema(hashKey, sortKey string) []types.KeySchemaElement {
	ks := []types.KeySchemaElement{
		{AttributeName: aws.String(hashKey), KeyType: types.KeyTypeHash},
	}
	if sortKey != "" {
		ks = append(ks, types.KeySchemaElement{AttributeName: aws.String(sortKey), KeyType: types.KeyTypeRange})
	}
	return ks
}

// gsi builds a GSI descriptor. If sortKey is empty, only a hash key is added.
func gsi(indexName, hashKey, sortKey string) types.GlobalSecondaryIndex {
	return types.GlobalSecondaryIndex{
		IndexName:  aws.String(indexName),
		KeySchema:  keySchema(hashKey, sortKey),
		Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
	}
}

func (b bootstrapper) createTable(ctx context.Context, input *dynamodb.CreateTableInput) {
	_, err := b.client.CreateTable(ctx, input)
	if err != nil {
		// ResourceInUseException means the table already exists.
		var riue *types.ResourceInUseException
		if !errors.As(err, &riue) {
			b.log.Warn("could not create table", zap.String("table", *input.TableName), zap.Error(err))
		}
		return
	}
	b.log.Info("created table", zap.String("table", *input.TableName))
}

func (b bootstrapper) enableTTL(ctx context.Context, tableName, ttlAttr string) {
	_, err := b.client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(tableName),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			Enabled:       aws.Bool(true),
			AttributeName: aws.String(ttlAttr),
		},
	})
	if err != nil {
		b.log.Warn("could not enable TTL", zap.String("table", tableName), zap.Error(err))
	}
}
