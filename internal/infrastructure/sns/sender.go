package sns

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/videotube-api/internal/config"
	"go.uber.org/zap"
)

const (
	EventUserRegistered = "user.registered"
	EventUserDeleted    = "user.deleted"
	EventVideoPublished = "video.published"
)

// Publisher emits account and content lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, event string, payload map[string]string)
}

type publishAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type publisher struct {
	client   publishAPI
	topicARN string
	log      *zap.Logger
}

type envelope struct {
	Event      string            `json:"event"`
	OccurredAt time.Time         `json:"occurred_at"`
	Data       map[string]string `json:"data"`
}

// NewPublisher returns a no-op publisher when no topic is configured.
func NewPublisher(cfg *config.Config, log *zap.Logger) (Publisher, error) {
	if cfg.SNSTopicARN == "" {
		return noop{}, nil
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, err
	}
	var clientOpts []func(*sns.Options)
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}
	return newPublisher(sns.NewFromConfig(awsCfg, clientOpts...), cfg.SNSTopicARN, log), nil
}

func newPublisher(client publishAPI, topicARN string, log *zap.Logger) *publisher {
	return &publisher{client: client, topicARN: topicARN, log: log}
}

// Publish is best effort. Errors are logged and swallowed.
func (p *publisher) Publish(ctx context.Context, event string, payload map[string]string) {
	body, err := json.Marshal(envelope{Event: event, OccurredAt: time.Now().UTC(), Data: payload})
	if err != nil {
		p.log.Error("marshal event", zap.String("event", event), zap.Error(err))
		return
	}
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event": {DataType: aws.String("String"), StringValue: aws.String(event)},
		},
	})
	if err != nil {
		p.log.Warn("publish event failed", zap.String("event", event), zap.Error(err))
	}
}

type noop struct{}

func (noop) Publish(context.Context, string, map[string]string) {}
