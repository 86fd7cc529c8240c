// Package notify delivers run summaries to operators over SNS and SES.
package notify

import (
	"context"
	stderrors "errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	awsclient "credit-scoring/internal/common/aws"
	apperrors "credit-scoring/internal/common/errors"
)

// Message is a channel-neutral notification. Body is sent verbatim; SNS
// subscribers receive it as the message payload, SES recipients as the
// plain-text email body.
type Message struct {
	Subject string
	Body    string
}

type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// SNSNotifier publishes to a single topic.
type SNSNotifier struct {
	client   awsclient.SNSService
	topicARN string
}

func NewSNSNotifier(client awsclient.SNSService, topicARN string) *SNSNotifier {
	return &SNSNotifier{client: client, topicARN: topicARN}
}

func (n *SNSNotifier) Notify(ctx context.Context, msg Message) error {
	_, err := n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(msg.Subject),
		Message:  aws.String(msg.Body),
	})
	if err != nil {
		return apperrors.NewNotificationFailedError("sns", err)
	}
	return nil
}

// SESNotifier emails a fixed recipient list.
type SESNotifier struct {
	client awsclient.SESService
	from   string
	to     []string
}

func NewSESNotifier(client awsclient.SESService, from string, to []string) *SESNotifier {
	return &SESNotifier{client: client, from: from, to: to}
}

func (n *SESNotifier) Notify(ctx context.Context, msg Message) error {
	_, err := n.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: n.to,
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(msg.Body)},
			},
		},
		Source: aws.String(n.from),
	})
	if err != nil {
		return apperrors.NewNotificationFailedError("ses", err)
	}
	return nil
}

// Multi fans a message out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
