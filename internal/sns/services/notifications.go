package services

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"philcali.me/foodgram/internal/notifications"
)

// Publisher is the part of the SNS client notifications are sent through.
type Publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type NotificationSNSService struct {
	Sns      Publisher
	TopicArn string
}

func NewNotificationService(client Publisher, topicArn string) *NotificationSNSService {
	return &NotificationSNSService{
		Sns:      client,
		TopicArn: topicArn,
	}
}

func (n *NotificationSNSService) Publish(ctx context.Context, notification notifications.Notification) (string, error) {
	attributes := make(map[string]types.MessageAttributeValue, len(notification.Attributes))
	for name, value := range notification.Attributes {
		attributes[name] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(value),
		}
	}
	input := &sns.PublishInput{
		TopicArn:          aws.String(n.TopicArn),
		Message:           aws.String(notification.Message),
		MessageAttributes: attributes,
	}
	if notification.Subject != "" {
		input.Subject = aws.String(notification.Subject)
	}
	output, err := n.Sns.Publish(ctx, input)
	if err != nil {
		return "", err
	}
	return aws.ToString(output.MessageId), nil
}
