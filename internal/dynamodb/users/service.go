package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"philcali.me/foodgram/internal/data"
	"philcali.me/foodgram/internal/dynamodb/services"
	"philcali.me/foodgram/internal/dynamodb/token"
	"philcali.me/foodgram/internal/exceptions"
)

const (
	Name      = "User"
	EmailName = "UserEmail"
)

type UserDynamoDBService struct {
	DynamoDB  *dynamodb.Client
	TableName string
	repo      *services.RepositoryDynamoDBService[data.UserDTO, data.UserInputDTO]
}

func NewUserService(tableName string, client *dynamodb.Client, marshaler token.TokenMarshaler) *UserDynamoDBService {
	return &UserDynamoDBService{
		DynamoDB:  client,
		TableName: tableName,
		repo: &services.RepositoryDynamoDBService[data.UserDTO, data.UserInputDTO]{
			DynamoDB:       client,
			TableName:      tableName,
			TokenMarshaler: marshaler,
			Name:           Name,
			Shim: func(pk, sk string) data.UserDTO {
				return data.UserDTO{PK: pk, SK: sk}
			},
		},
	}
}

func (us *UserDynamoDBService) Get(ctx context.Context, username string) (data.UserDTO, error) {
	return us.repo.Get(ctx, data.GLOBAL_ACCOUNT, username)
}

func (us *UserDynamoDBService) BatchGet(ctx context.Context, usernames []string) (map[string]data.UserDTO, error) {
	return us.repo.BatchGet(ctx, data.GLOBAL_ACCOUNT, usernames)
}

func (us *UserDynamoDBService) List(ctx context.Context, params data.QueryParams) (data.QueryResults[data.UserDTO], error) {
	return us.repo.List(ctx, data.GLOBAL_ACCOUNT, params)
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (us *UserDynamoDBService) Save(ctx context.Context, input data.UserInputDTO) (data.UserDTO, error) {
	now := time.Now()
	existing, err := us.Get(ctx, input.Username)
	isNew := false
	if err != nil {
		var notFound *exceptions.NotFoundError
		if !errors.As(err, &notFound) {
			return existing, err
		}
		isNew = true
		existing.Username = input.Username
		existing.CreateTime = now
	}
	previousEmail := existing.Email
	if input.Email != nil {
		existing.Email = *input.Email
	}
	if input.FirstName != nil {
		existing.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		existing.LastName = *input.LastName
	}
	existing.UpdateTime = now
	item, err := attributevalue.MarshalMap(existing)
	if err != nil {
		return existing, err
	}
	userCondition := expression.Name("PK").AttributeExists()
	if isNew {
		userCondition = expression.Name("PK").AttributeNotExists()
	}
	userExpr, err := expression.NewBuilder().WithCondition(userCondition).Build()
	if err != nil {
		return existing, err
	}
	items := []types.TransactWriteItem{
		{
			Put: &types.Put{
				TableName:                aws.String(us.TableName),
				Item:                     item,
				ConditionExpression:      userExpr.Condition(),
				ExpressionAttributeNames: userExpr.Names(),
			},
		},
	}
	emailChanged := emailKey(previousEmail) != emailKey(existing.Email)
	if emailChanged && existing.Email != "" {
		marker, err := attributevalue.MarshalMap(services.MarkerItem{
			PK:    services.PrimaryKey(data.GLOBAL_ACCOUNT, EmailName),
			SK:    emailKey(existing.Email),
			Owner: existing.Username,
		})
		if err != nil {
			return existing, err
		}
		markerExpr, err := expression.NewBuilder().WithCondition(expression.Or(
			expression.Name("PK").AttributeNotExists(),
			expression.Name("owner").Equal(expression.Value(existing.Username)),
		)).Build()
		if err != nil {
			return existing, err
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName:                 aws.String(us.TableName),
				Item:                      marker,
				ConditionExpression:       markerExpr.Condition(),
				ExpressionAttributeNames:  markerExpr.Names(),
				ExpressionAttributeValues: markerExpr.Values(),
			},
		})
	}
	if emailChanged && previousEmail != "" {
		key, err := services.Key(services.PrimaryKey(data.GLOBAL_ACCOUNT, EmailName), emailKey(previousEmail))
		if err != nil {
			return existing, err
		}
		items = append(items, types.TransactWriteItem{
			Delete: &types.Delete{
				TableName: aws.String(us.TableName),
				Key:       key,
			},
		})
	}
	_, err = us.DynamoDB.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if failed, ok := services.FailedConditions(err); ok {
		for _, index := range failed {
			if index == 1 {
				return existing, exceptions.Conflict("email", existing.Email)
			}
		}
		return existing, exceptions.Conflict("user", existing.Username)
	}
	return existing, err
}
