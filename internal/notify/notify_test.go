package notify

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "credit-scoring/internal/common/errors"
)

type mockSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (m *mockSNS) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.inputs = append(m.inputs, params)
	if m.err != nil {
		return nil, m.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-1")}, nil
}

type mockSES struct {
	inputs []*ses.SendEmailInput
	err    error
}

func (m *mockSES) SendEmail(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.inputs = append(m.inputs, params)
	if m.err != nil {
		return nil, m.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("mail-1")}, nil
}

var msg = Message{Subject: "batch complete", Body: `{"processed":5}`}

func TestSNSNotifier(t *testing.T) {
	client := &mockSNS{}
	n := NewSNSNotifier(client, "arn:aws:sns:us-east-1:123:credit")

	require.NoError(t, n.Notify(context.Background(), msg))
	require.Len(t, client.inputs, 1)
	assert.Equal(t, "arn:aws:sns:us-east-1:123:credit", aws.ToString(client.inputs[0].TopicArn))
	assert.Equal(t, `{"processed":5}`, aws.ToString(client.inputs[0].Message))
	assert.Equal(t, "batch complete", aws.ToString(client.inputs[0].Subject))
}

func TestSESNotifier(t *testing.T) {
	client := &mockSES{}
	n := NewSESNotifier(client, "noreply@example.com", []string{"ops@example.com"})

	require.NoError(t, n.Notify(context.Background(), msg))
	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Equal(t, "noreply@example.com", aws.ToString(in.Source))
	assert.Equal(t, []string{"ops@example.com"}, in.Destination.ToAddresses)
	assert.Equal(t, `{"processed":5}`, aws.ToString(in.Message.Body.Text.Data))
}

func TestNotifierErrors(t *testing.T) {
	snsErr := NewSNSNotifier(&mockSNS{err: stderrors.New("throttled")}, "arn").Notify(context.Background(), msg)
	assert.True(t, apperrors.HasCode(snsErr, apperrors.ErrCodeNotificationFailed))

	sesErr := NewSESNotifier(&mockSES{err: stderrors.New("unverified")}, "a", []string{"b"}).Notify(context.Background(), msg)
	assert.True(t, apperrors.HasCode(sesErr, apperrors.ErrCodeNotificationFailed))
}

func TestMulti(t *testing.T) {
	okSNS := &mockSNS{}
	failing := &mockSES{err: stderrors.New("down")}
	m := Multi{NewSNSNotifier(okSNS, "arn"), NewSESNotifier(failing, "a", []string{"b"})}

	err := m.Notify(context.Background(), msg)
	require.Error(t, err)
	assert.Len(t, okSNS.inputs, 1, "one failing channel does not stop the others")
	assert.Contains(t, err.Error(), "ses")

	assert.NoError(t, Multi{}.Notify(context.Background(), msg))
}
