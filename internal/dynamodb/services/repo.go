package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"philcali.me/foodgram/internal/data"
	"philcali.me/foodgram/internal/dynamodb/token"
	"philcali.me/foodgram/internal/exceptions"
)

// maxBatchGet is the key limit of a single BatchGetItem call.
const maxBatchGet = 100

type RepositoryDynamoDBService[T interface{}, I interface{}] struct {
	DynamoDB       *dynamodb.Client
	TableName      string
	IndexName      string
	TokenMarshaler token.TokenMarshaler
	Name           string
	Shim           func(pk string, sk string) T
	OnCreate       func(I, time.Time, string, string) T
	OnUpdate       func(I, expression.UpdateBuilder) expression.UpdateBuilder
}

func PrimaryKey(accountId string, name string) string {
	return fmt.Sprintf("%s:%s", accountId, name)
}

func Key(pks string, sks string) (map[string]types.AttributeValue, error) {
	pk, err := attributevalue.Marshal(pks)
	if err != nil {
		return nil, err
	}
	sk, err := attributevalue.Marshal(sks)
	if err != nil {
		return nil, err
	}
	return map[string]types.AttributeValue{"PK": pk, "SK": sk}, nil
}

func IsConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

func (rs *RepositoryDynamoDBService[T, I]) query(ctx context.Context, scope string, input *dynamodb.QueryInput, params data.QueryParams) (data.QueryResults[T], error) {
	startKey, err := rs.TokenMarshaler.Unmarshal(scope, params.NextToken)
	if err != nil {
		return data.QueryResults[T]{}, err
	}
	input.TableName = aws.String(rs.TableName)
	input.Limit = params.GetLimit()
	input.ExclusiveStartKey = startKey
	output, err := rs.DynamoDB.Query(ctx, input)
	if err != nil {
		return data.QueryResults[T]{}, err
	}
	items := make([]T, 0, len(output.Items))
	if err := attributevalue.UnmarshalListOfMaps(output.Items, &items); err != nil {
		return data.QueryResults[T]{}, err
	}
	nextToken, err := rs.TokenMarshaler.Marshal(scope, output.LastEvaluatedKey)
	if err != nil {
		return data.QueryResults[T]{}, err
	}
	return data.QueryResults[T]{
		Items:     items,
		NextToken: nextToken,
	}, nil
}

func (rs *RepositoryDynamoDBService[T, I]) List(ctx context.Context, accountId string, params data.QueryParams) (data.QueryResults[T], error) {
	pk := PrimaryKey(accountId, rs.Name)
	keyEx := expression.Key("PK").Equal(expression.Value(pk))
	expr, err := expression.NewBuilder().WithKeyCondition(keyEx).Build()
	if err != nil {
		return data.QueryResults[T]{}, err
	}
	return rs.query(ctx, pk, &dynamodb.QueryInput{
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}, params)
}

// ListIndex queries the first global index, where items are grouped by
// the reverse side of the relation they model.
func (rs *RepositoryDynamoDBService[T, I]) ListIndex(ctx context.Context, indexKey string, params data.QueryParams) (data.QueryResults[T], error) {
	keyEx := expression.Key("GS1-PK").Equal(expression.Value(indexKey))
	expr, err := expression.NewBuilder().WithKeyCondition(keyEx).Build()
	if err != nil {
		return data.QueryResults[T]{}, err
	}
	return rs.query(ctx, indexKey, &dynamodb.QueryInput{
		IndexName:                 aws.String(rs.IndexName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}, params)
}

func (rs *RepositoryDynamoDBService[T, I]) Get(ctx context.Context, accountId string, itemId string) (T, error) {
	pk := PrimaryKey(accountId, rs.Name)
	shim := rs.Shim(pk, itemId)
	key, err := Key(pk, itemId)
	if err != nil {
		return shim, err
	}
	response, err := rs.DynamoDB.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(rs.TableName),
		Key:       key,
	})
	if err != nil {
		return shim, err
	}
	if response.Item == nil {
		return shim, exceptions.NotFound(strings.ToLower(rs.Name), itemId)
	}
	err = attributevalue.UnmarshalMap(response.Item, &shim)
	return shim, err
}

// BatchGet returns the items that exist among itemIds, keyed by item id.
func (rs *RepositoryDynamoDBService[T, I]) BatchGet(ctx context.Context, accountId string, itemIds []string) (map[string]T, error) {
	pk := PrimaryKey(accountId, rs.Name)
	results := make(map[string]T, len(itemIds))
	keys := make([]map[string]types.AttributeValue, 0, len(itemIds))
	seen := make(map[string]bool, len(itemIds))
	for _, itemId := range itemIds {
		if seen[itemId] {
			continue
		}
		seen[itemId] = true
		key, err := Key(pk, itemId)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	for start := 0; start < len(keys); start += maxBatchGet {
		end := start + maxBatchGet
		if end > len(keys) {
			end = len(keys)
		}
		request := map[string]types.KeysAndAttributes{
			rs.TableName: {Keys: keys[start:end]},
		}
		for len(request) > 0 {
			output, err := rs.DynamoDB.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
				RequestItems: request,
			})
			if err != nil {
				return nil, err
			}
			for _, item := range output.Responses[rs.TableName] {
				var sk string
				if err := attributevalue.Unmarshal(item["SK"], &sk); err != nil {
					return nil, err
				}
				shim := rs.Shim(pk, sk)
				if err := attributevalue.UnmarshalMap(item, &shim); err != nil {
					return nil, err
				}
				results[sk] = shim
			}
			request = output.UnprocessedKeys
		}
	}
	return results, nil
}

func (rs *RepositoryDynamoDBService[T, I]) Create(ctx context.Context, accountId string, input I) (T, error) {
	gid, err := uuid.NewV7()
	if err != nil {
		var empty T
		return empty, err
	}
	return rs.CreateWithItemId(ctx, accountId, input, gid.String())
}

func (rs *RepositoryDynamoDBService[T, I]) CreateWithItemId(ctx context.Context, accountId string, input I, itemId string) (T, error) {
	now := time.Now()
	shim := rs.OnCreate(input, now, PrimaryKey(accountId, rs.Name), itemId)
	item, err := attributevalue.MarshalMap(shim)
	if err != nil {
		return shim, err
	}
	expr, err := expression.NewBuilder().WithCondition(expression.Name("PK").AttributeNotExists().And(expression.Name("SK").AttributeNotExists())).Build()
	if err != nil {
		return shim, err
	}
	_, err = rs.DynamoDB.PutItem(ctx, &dynamodb.PutItemInput{
		Item:                     item,
		TableName:                aws.String(rs.TableName),
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		if IsConditionalCheckFailed(err) {
			return shim, exceptions.Conflict(strings.ToLower(rs.Name), itemId)
		}
		return shim, err
	}
	return shim, nil
}

func (rs *RepositoryDynamoDBService[T, I]) Update(ctx context.Context, accountId string, itemId string, input I) (T, error) {
	pk := PrimaryKey(accountId, rs.Name)
	shim := rs.Shim(pk, itemId)
	key, err := Key(pk, itemId)
	if err != nil {
		return shim, err
	}
	update := expression.Set(expression.Name("updateTime"), expression.Value(time.Now()))
	condition := expression.Name("PK").AttributeExists().And(expression.Name("SK").AttributeExists())
	if rs.OnUpdate != nil {
		update = rs.OnUpdate(input, update)
	}
	expr, err := expression.NewBuilder().WithCondition(condition).WithUpdate(update).Build()
	if err != nil {
		return shim, err
	}
	response, err := rs.DynamoDB.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(rs.TableName),
		Key:                       key,
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if IsConditionalCheckFailed(err) {
			return shim, exceptions.NotFound(strings.ToLower(rs.Name), itemId)
		}
		return shim, err
	}
	err = attributevalue.UnmarshalMap(response.Attributes, &shim)
	return shim, err
}

func (rs *RepositoryDynamoDBService[T, I]) Delete(ctx context.Context, accountId string, itemId string) error {
	key, err := Key(PrimaryKey(accountId, rs.Name), itemId)
	if err != nil {
		return err
	}
	_, err = rs.DynamoDB.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		Key:       key,
		TableName: aws.String(rs.TableName),
	})
	return err
}

// DeleteExisting is Delete that reports a NotFound when nothing was removed.
func (rs *RepositoryDynamoDBService[T, I]) DeleteExisting(ctx context.Context, accountId string, itemId string) error {
	key, err := Key(PrimaryKey(accountId, rs.Name), itemId)
	if err != nil {
		return err
	}
	expr, err := expression.NewBuilder().WithCondition(expression.Name("PK").AttributeExists()).Build()
	if err != nil {
		return err
	}
	_, err = rs.DynamoDB.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		Key:                      key,
		TableName:                aws.String(rs.TableName),
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil && IsConditionalCheckFailed(err) {
		return exceptions.NotFound(strings.ToLower(rs.Name), itemId)
	}
	return err
}
