package sns

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/videotube-api/internal/config"
	"go.uber.org/zap"
)

type fakeSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, in)
	return &sns.PublishOutput{}, f.err
}

func TestPublish_WrapsPayload(t *testing.T) {
	f := &fakeSNS{}
	p := newPublisher(f, "arn:aws:sns:us-east-1:000000000000:events", zap.NewNop())

	p.Publish(context.Background(), EventUserDeleted, map[string]string{"user_id": "u1"})

	require.Len(t, f.inputs, 1)
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(*f.inputs[0].Message), &env))
	assert.Equal(t, EventUserDeleted, env.Event)
	assert.Equal(t, "u1", env.Data["user_id"])
	assert.Equal(t, EventUserDeleted, *f.inputs[0].MessageAttributes["event"].StringValue)
}

func TestPublish_SwallowsErrors(t *testing.T) {
	f := &fakeSNS{err: errors.New("boom")}
	p := newPublisher(f, "arn", zap.NewNop())

	assert.NotPanics(t, func() {
		p.Publish(context.Background(), EventUserRegistered, nil)
	})
}

func TestNewPublisher_NoTopicIsNoop(t *testing.T) {
	p, err := NewPublisher(&config.Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, noop{}, p)
}
