// Package catalog stores the immutable reference data recipes point at:
// ingredients and tags. Uniqueness is held by marker items written in the
// same transaction as the row they guard.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"philcali.me/foodgram/internal/data"
	"philcali.me/foodgram/internal/dynamodb/services"
	"philcali.me/foodgram/internal/dynamodb/token"
	"philcali.me/foodgram/internal/exceptions"
)

const (
	IngredientName    = "Ingredient"
	IngredientByName  = "IngredientName"
	IngredientKeyName = "IngredientKey"
	TagName           = "Tag"
	TagNameMarker     = "TagName"
	TagColorMarker    = "TagColor"
	TagSlugMarker     = "TagSlug"
)

type CatalogDynamoDBService struct {
	DynamoDB       *dynamodb.Client
	TableName      string
	IndexName      string
	TokenMarshaler token.TokenMarshaler
	ingredients    *services.RepositoryDynamoDBService[data.IngredientDTO, data.IngredientInputDTO]
	tags           *services.RepositoryDynamoDBService[data.TagDTO, data.TagInputDTO]
}

func NewCatalogService(tableName string, indexName string, client *dynamodb.Client, marshaler token.TokenMarshaler) *CatalogDynamoDBService {
	return &CatalogDynamoDBService{
		DynamoDB:       client,
		TableName:      tableName,
		IndexName:      indexName,
		TokenMarshaler: marshaler,
		ingredients: &services.RepositoryDynamoDBService[data.IngredientDTO, data.IngredientInputDTO]{
			DynamoDB:       client,
			TableName:      tableName,
			IndexName:      indexName,
			TokenMarshaler: marshaler,
			Name:           IngredientName,
			Shim: func(pk, sk string) data.IngredientDTO {
				return data.IngredientDTO{PK: pk, SK: sk}
			},
		},
		tags: &services.RepositoryDynamoDBService[data.TagDTO, data.TagInputDTO]{
			DynamoDB:       client,
			TableName:      tableName,
			TokenMarshaler: marshaler,
			Name:           TagName,
			Shim: func(pk, sk string) data.TagDTO {
				return data.TagDTO{PK: pk, SK: sk}
			},
		},
	}
}

// IngredientKey is the natural key an ingredient is unique on.
func IngredientKey(name string, unit string) string {
	return fmt.Sprintf("%s#%s", strings.ToLower(name), unit)
}

func (cs *CatalogDynamoDBService) GetTag(ctx context.Context, id string) (data.TagDTO, error) {
	return cs.tags.Get(ctx, data.GLOBAL_ACCOUNT, id)
}

func (cs *CatalogDynamoDBService) GetTags(ctx context.Context, ids []string) (map[string]data.TagDTO, error) {
	return cs.tags.BatchGet(ctx, data.GLOBAL_ACCOUNT, ids)
}

// ListTags returns every tag ordered by name. The tag set is small enough
// to never need paging.
func (cs *CatalogDynamoDBService) ListTags(ctx context.Context) ([]data.TagDTO, error) {
	tags, err := data.ListAll(func(params data.QueryParams) (data.QueryResults[data.TagDTO], error) {
		return cs.tags.List(ctx, data.GLOBAL_ACCOUNT, params)
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(tags, func(i, j int) bool {
		return tags[i].Name < tags[j].Name
	})
	return tags, nil
}

func (cs *CatalogDynamoDBService) GetIngredient(ctx context.Context, id string) (data.IngredientDTO, error) {
	return cs.ingredients.Get(ctx, data.GLOBAL_ACCOUNT, id)
}

func (cs *CatalogDynamoDBService) GetIngredients(ctx context.Context, ids []string) (map[string]data.IngredientDTO, error) {
	return cs.ingredients.BatchGet(ctx, data.GLOBAL_ACCOUNT, ids)
}

// ListIngredients pages through ingredients in name order, restricted to
// names starting with namePrefix (case-insensitive) when it is not empty.
func (cs *CatalogDynamoDBService) ListIngredients(ctx context.Context, namePrefix string, params data.QueryParams) (data.QueryResults[data.IngredientDTO], error) {
	indexKey := services.PrimaryKey(data.GLOBAL_ACCOUNT, IngredientByName)
	keyEx := expression.Key("GS1-PK").Equal(expression.Value(indexKey))
	if namePrefix != "" {
		keyEx = keyEx.And(expression.Key("GS1-SK").BeginsWith(strings.ToLower(namePrefix)))
	}
	expr, err := expression.NewBuilder().WithKeyCondition(keyEx).Build()
	if err != nil {
		return data.QueryResults[data.IngredientDTO]{}, err
	}
	scope := indexKey + "#" + strings.ToLower(namePrefix)
	startKey, err := cs.TokenMarshaler.Unmarshal(scope, params.NextToken)
	if err != nil {
		return data.QueryResults[data.IngredientDTO]{}, err
	}
	output, err := cs.DynamoDB.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(cs.TableName),
		IndexName:                 aws.String(cs.IndexName),
		Limit:                     params.GetLimit(),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ExclusiveStartKey:         startKey,
	})
	if err != nil {
		return data.QueryResults[data.IngredientDTO]{}, err
	}
	items := make([]data.IngredientDTO, 0, len(output.Items))
	if err := attributevalue.UnmarshalListOfMaps(output.Items, &items); err != nil {
		return data.QueryResults[data.IngredientDTO]{}, err
	}
	nextToken, err := cs.TokenMarshaler.Marshal(scope, output.LastEvaluatedKey)
	if err != nil {
		return data.QueryResults[data.IngredientDTO]{}, err
	}
	return data.QueryResults[data.IngredientDTO]{
		Items:     items,
		NextToken: nextToken,
	}, nil
}

func (cs *CatalogDynamoDBService) markerPut(name string, value string, owner string) (types.TransactWriteItem, error) {
	item, err := attributevalue.MarshalMap(services.MarkerItem{
		PK:    services.PrimaryKey(data.GLOBAL_ACCOUNT, name),
		SK:    value,
		Owner: owner,
	})
	if err != nil {
		return types.TransactWriteItem{}, err
	}
	return cs.conditionalPut(item)
}

func (cs *CatalogDynamoDBService) conditionalPut(item map[string]types.AttributeValue) (types.TransactWriteItem, error) {
	expr, err := expression.NewBuilder().WithCondition(expression.Name("PK").AttributeNotExists()).Build()
	if err != nil {
		return types.TransactWriteItem{}, err
	}
	return types.TransactWriteItem{
		Put: &types.Put{
			TableName:                aws.String(cs.TableName),
			Item:                     item,
			ConditionExpression:      expr.Condition(),
			ExpressionAttributeNames: expr.Names(),
		},
	}, nil
}

func (cs *CatalogDynamoDBService) CreateIngredient(ctx context.Context, input data.IngredientInputDTO) (data.IngredientDTO, error) {
	if input.Name == nil || input.MeasurementUnit == nil || *input.Name == "" || *input.MeasurementUnit == "" {
		return data.IngredientDTO{}, exceptions.InvalidInput("ingredient requires a name and a measurement_unit")
	}
	gid, err := uuid.NewV7()
	if err != nil {
		return data.IngredientDTO{}, err
	}
	id := gid.String()
	ingredient := data.IngredientDTO{
		PK:              services.PrimaryKey(data.GLOBAL_ACCOUNT, IngredientName),
		SK:              id,
		FirstIndex:      services.PrimaryKey(data.GLOBAL_ACCOUNT, IngredientByName),
		FirstSort:       fmt.Sprintf("%s#%s", strings.ToLower(*input.Name), id),
		Name:            *input.Name,
		MeasurementUnit: *input.MeasurementUnit,
		CreateTime:      time.Now(),
	}
	item, err := attributevalue.MarshalMap(ingredient)
	if err != nil {
		return ingredient, err
	}
	put, err := cs.conditionalPut(item)
	if err != nil {
		return ingredient, err
	}
	marker, err := cs.markerPut(IngredientKeyName, IngredientKey(ingredient.Name, ingredient.MeasurementUnit), id)
	if err != nil {
		return ingredient, err
	}
	_, err = cs.DynamoDB.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{put, marker},
	})
	if _, ok := services.FailedConditions(err); ok {
		return ingredient, exceptions.Conflict("ingredient", IngredientKey(ingredient.Name, ingredient.MeasurementUnit))
	}
	if err == nil {
		log.Debug().Str("id", id).Str("name", ingredient.Name).Msg("Created ingredient")
	}
	return ingredient, err
}

func (cs *CatalogDynamoDBService) CreateTag(ctx context.Context, input data.TagInputDTO) (data.TagDTO, error) {
	if input.Name == nil || input.Color == nil || input.Slug == nil {
		return data.TagDTO{}, exceptions.InvalidInput("tag requires a name, a color and a slug")
	}
	gid, err := uuid.NewV7()
	if err != nil {
		return data.TagDTO{}, err
	}
	id := gid.String()
	tag := data.TagDTO{
		PK:         services.PrimaryKey(data.GLOBAL_ACCOUNT, TagName),
		SK:         id,
		Name:       *input.Name,
		Color:      *input.Color,
		Slug:       *input.Slug,
		CreateTime: time.Now(),
	}
	item, err := attributevalue.MarshalMap(tag)
	if err != nil {
		return tag, err
	}
	put, err := cs.conditionalPut(item)
	if err != nil {
		return tag, err
	}
	markers := []struct {
		name  string
		value string
	}{
		{TagNameMarker, tag.Name},
		{TagColorMarker, strings.ToLower(tag.Color)},
		{TagSlugMarker, tag.Slug},
	}
	items := []types.TransactWriteItem{put}
	for _, m := range markers {
		marker, err := cs.markerPut(m.name, m.value, id)
		if err != nil {
			return tag, err
		}
		items = append(items, marker)
	}
	_, err = cs.DynamoDB.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if failed, ok := services.FailedConditions(err); ok {
		for _, index := range failed {
			if index > 0 {
				m := markers[index-1]
				return tag, exceptions.Conflict("tag "+strings.ToLower(strings.TrimPrefix(m.name, "Tag")), m.value)
			}
		}
		return tag, exceptions.Conflict("tag", id)
	}
	return tag, err
}
