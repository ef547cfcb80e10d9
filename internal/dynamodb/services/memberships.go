package services

import (
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"philcali.me/foodgram/internal/data"
	"philcali.me/foodgram/internal/dynamodb/token"
)

// NewMembershipService stores one of a user's recipe collections. Items are
// keyed <username>:<name> / recipeId and indexed <recipeId>:<name> / username
// so a recipe can find every user holding it.
func NewMembershipService(name string, tableName string, indexName string, client *dynamodb.Client, marshaler token.TokenMarshaler) data.MembershipDataService {
	return &RepositoryDynamoDBService[data.MembershipDTO, data.MembershipInputDTO]{
		DynamoDB:       client,
		TableName:      tableName,
		IndexName:      indexName,
		TokenMarshaler: marshaler,
		Name:           name,
		Shim: func(pk, sk string) data.MembershipDTO {
			return data.MembershipDTO{PK: pk, SK: sk}
		},
		OnCreate: func(mid data.MembershipInputDTO, createTime time.Time, pk, sk string) data.MembershipDTO {
			username := strings.TrimSuffix(pk, ":"+name)
			return data.MembershipDTO{
				PK:         pk,
				SK:         sk,
				FirstIndex: PrimaryKey(sk, name),
				FirstSort:  username,
				Username:   username,
				RecipeId:   sk,
				CreateTime: createTime,
			}
		},
	}
}
