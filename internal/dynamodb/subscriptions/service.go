package subscriptions

import (
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"philcali.me/foodgram/internal/data"
	"philcali.me/foodgram/internal/dynamodb/services"
	"philcali.me/foodgram/internal/dynamodb/token"
)

const (
	Name = "Subscription"
	// Subscribers is the index partition listing who follows an author.
	Subscribers = "Subscriber"
)

func NewSubscriptionDynamoDBService(tableName string, indexName string, client *dynamodb.Client, marshaler token.TokenMarshaler) data.SubscriptionDataService {
	return &services.RepositoryDynamoDBService[data.SubscriptionDTO, data.SubscriptionInputDTO]{
		DynamoDB:       client,
		TableName:      tableName,
		IndexName:      indexName,
		TokenMarshaler: marshaler,
		Name:           Name,
		Shim: func(pk, sk string) data.SubscriptionDTO {
			return data.SubscriptionDTO{PK: pk, SK: sk}
		},
		OnCreate: func(sid data.SubscriptionInputDTO, createTime time.Time, pk, sk string) data.SubscriptionDTO {
			subscriber := strings.TrimSuffix(pk, ":"+Name)
			return data.SubscriptionDTO{
				PK:         pk,
				SK:         sk,
				FirstIndex: services.PrimaryKey(sk, Subscribers),
				FirstSort:  subscriber,
				Subscriber: subscriber,
				Author:     sk,
				CreateTime: createTime,
			}
		},
	}
}
