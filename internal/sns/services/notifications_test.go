package services_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"philcali.me/foodgram/internal/notifications"
	"philcali.me/foodgram/internal/sns/services"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(params)
	return args.Get(0).(*sns.PublishOutput), args.Error(1)
}

func TestPublish(t *testing.T) {
	publisher := &mockPublisher{}
	publisher.On("Publish", mock.MatchedBy(func(input *sns.PublishInput) bool {
		author, ok := input.MessageAttributes["author"]
		return aws.ToString(input.TopicArn) == "arn:aws:sns:us-east-1:012345678912:Recipes" &&
			ok && aws.ToString(author.StringValue) == "alice" &&
			aws.ToString(input.Subject) == "New recipe"
	})).Return(&sns.PublishOutput{MessageId: aws.String("message-1")}, nil)

	service := services.NewNotificationService(publisher, "arn:aws:sns:us-east-1:012345678912:Recipes")
	messageId, err := service.Publish(context.Background(), notifications.Notification{
		Subject:    "New recipe",
		Message:    "alice published Pancakes",
		Attributes: map[string]string{"author": "alice"},
	})
	require.NoError(t, err)
	assert.Equal(t, "message-1", messageId)
	publisher.AssertExpectations(t)
}
