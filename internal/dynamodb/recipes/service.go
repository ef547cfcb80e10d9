// Package recipes persists a recipe and everything it owns as one item
// collection, so creates, updates and deletes commit in a single
// TransactWriteItems call.
package recipes

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

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
	Name       = "Recipe"
	NameMarker = "RecipeName"
	rootSK     = "Recipe"
	tagSK      = "Tag:"
	ingredSK   = "Ingredient:"
)

type RecipeDynamoDBService struct {
	DynamoDB       *dynamodb.Client
	TableName      string
	FirstIndex     string
	SecondIndex    string
	TokenMarshaler token.TokenMarshaler
}

func NewRecipeService(tableName string, firstIndex string, secondIndex string, client *dynamodb.Client, marshaler token.TokenMarshaler) *RecipeDynamoDBService {
	return &RecipeDynamoDBService{
		DynamoDB:       client,
		TableName:      tableName,
		FirstIndex:     firstIndex,
		SecondIndex:    secondIndex,
		TokenMarshaler: marshaler,
	}
}

func partitionKey(recipeId string) string {
	return services.PrimaryKey(recipeId, Name)
}

func (rs *RecipeDynamoDBService) Get(ctx context.Context, recipeId string) (data.RecipeAggregate, error) {
	aggregate := data.RecipeAggregate{
		Tags:        []data.RecipeTagDTO{},
		Ingredients: []data.RecipeIngredientDTO{},
	}
	keyEx := expression.Key("PK").Equal(expression.Value(partitionKey(recipeId)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyEx).Build()
	if err != nil {
		return aggregate, err
	}
	foundRoot := false
	paginator := dynamodb.NewQueryPaginator(rs.DynamoDB, &dynamodb.QueryInput{
		TableName:                 aws.String(rs.TableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(true),
	})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return aggregate, err
		}
		for _, item := range output.Items {
			var sk string
			if err := attributevalue.Unmarshal(item["SK"], &sk); err != nil {
				return aggregate, err
			}
			switch {
			case sk == rootSK:
				foundRoot = true
				err = attributevalue.UnmarshalMap(item, &aggregate.Recipe)
			case strings.HasPrefix(sk, tagSK):
				var link data.RecipeTagDTO
				err = attributevalue.UnmarshalMap(item, &link)
				aggregate.Tags = append(aggregate.Tags, link)
			case strings.HasPrefix(sk, ingredSK):
				var link data.RecipeIngredientDTO
				err = attributevalue.UnmarshalMap(item, &link)
				aggregate.Ingredients = append(aggregate.Ingredients, link)
			}
			if err != nil {
				return aggregate, err
			}
		}
	}
	if !foundRoot {
		return aggregate, exceptions.NotFound("recipe", recipeId)
	}
	sortLinks(&aggregate)
	return aggregate, nil
}

func sortLinks(aggregate *data.RecipeAggregate) {
	sort.SliceStable(aggregate.Tags, func(i, j int) bool {
		return aggregate.Tags[i].Name < aggregate.Tags[j].Name
	})
	sort.SliceStable(aggregate.Ingredients, func(i, j int) bool {
		return aggregate.Ingredients[i].Name < aggregate.Ingredients[j].Name
	})
}

func matchesTags(recipe data.RecipeDTO, slugs []string) bool {
	if len(slugs) == 0 {
		return true
	}
	for _, slug := range slugs {
		for _, candidate := range recipe.TagSlugs {
			if candidate == slug {
				return true
			}
		}
	}
	return false
}

func tagFilter(slugs []string) (expression.ConditionBuilder, bool) {
	if len(slugs) == 0 {
		return expression.ConditionBuilder{}, false
	}
	condition := expression.Contains(expression.Name("tagSlugs"), slugs[0])
	for _, slug := range slugs[1:] {
		condition = condition.Or(expression.Contains(expression.Name("tagSlugs"), slug))
	}
	return condition, true
}

func listScope(filter data.RecipeFilter) string {
	return fmt.Sprintf("Recipe#%s#%s", aws.ToString(filter.Author), strings.Join(filter.Tags, ","))
}

// List returns recipes newest first. Ids pins the listing to a known set,
// otherwise Author narrows it to one author's recipes. Tags keeps recipes
// carrying any of the slugs.
func (rs *RecipeDynamoDBService) List(ctx context.Context, filter data.RecipeFilter, params data.QueryParams) (data.QueryResults[data.RecipeAggregate], error) {
	var roots data.QueryResults[data.RecipeDTO]
	var err error
	if filter.Ids != nil {
		roots, err = rs.listIds(ctx, filter, params)
	} else {
		roots, err = rs.listIndex(ctx, filter, params)
	}
	if err != nil {
		return data.QueryResults[data.RecipeAggregate]{}, err
	}
	results := data.QueryResults[data.RecipeAggregate]{
		Items:     make([]data.RecipeAggregate, 0, len(roots.Items)),
		NextToken: roots.NextToken,
	}
	for _, root := range roots.Items {
		aggregate, err := rs.Get(ctx, root.Id)
		if err != nil {
			var notFound *exceptions.NotFoundError
			if errors.As(err, &notFound) {
				continue
			}
			return data.QueryResults[data.RecipeAggregate]{}, err
		}
		results.Items = append(results.Items, aggregate)
	}
	return results, nil
}

func (rs *RecipeDynamoDBService) listIndex(ctx context.Context, filter data.RecipeFilter, params data.QueryParams) (data.QueryResults[data.RecipeDTO], error) {
	indexName := rs.FirstIndex
	keyEx := expression.Key("GS1-PK").Equal(expression.Value(services.PrimaryKey(data.GLOBAL_ACCOUNT, Name)))
	if filter.Author != nil {
		indexName = rs.SecondIndex
		keyEx = expression.Key("GS2-PK").Equal(expression.Value(services.PrimaryKey(*filter.Author, Name)))
	}
	builder := expression.NewBuilder().WithKeyCondition(keyEx)
	if condition, ok := tagFilter(filter.Tags); ok {
		builder = builder.WithFilter(condition)
	}
	expr, err := builder.Build()
	if err != nil {
		return data.QueryResults[data.RecipeDTO]{}, err
	}
	scope := listScope(filter)
	startKey, err := rs.TokenMarshaler.Unmarshal(scope, params.NextToken)
	if err != nil {
		return data.QueryResults[data.RecipeDTO]{}, err
	}
	output, err := rs.DynamoDB.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(rs.TableName),
		IndexName:                 aws.String(indexName),
		Limit:                     params.GetLimit(),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ExclusiveStartKey:         startKey,
		ScanIndexForward:          aws.Bool(false),
	})
	if err != nil {
		return data.QueryResults[data.RecipeDTO]{}, err
	}
	var items []data.RecipeDTO
	if err := attributevalue.UnmarshalListOfMaps(output.Items, &items); err != nil {
		return data.QueryResults[data.RecipeDTO]{}, err
	}
	nextToken, err := rs.TokenMarshaler.Marshal(scope, output.LastEvaluatedKey)
	if err != nil {
		return data.QueryResults[data.RecipeDTO]{}, err
	}
	return data.QueryResults[data.RecipeDTO]{
		Items:     items,
		NextToken: nextToken,
	}, nil
}

// listIds pages over an explicit id set. The page token holds the last
// returned id, sealed like any other listing token.
func (rs *RecipeDynamoDBService) listIds(ctx context.Context, filter data.RecipeFilter, params data.QueryParams) (data.QueryResults[data.RecipeDTO], error) {
	scope := "Ids#" + listScope(filter)
	startKey, err := rs.TokenMarshaler.Unmarshal(scope, params.NextToken)
	if err != nil {
		return data.QueryResults[data.RecipeDTO]{}, err
	}
	var after string
	if startKey != nil {
		if err := attributevalue.Unmarshal(startKey["recipeId"], &after); err != nil {
			return data.QueryResults[data.RecipeDTO]{}, exceptions.InvalidInput("nextToken is malformed")
		}
	}
	ids := make([]string, 0, len(filter.Ids))
	for _, id := range filter.Ids {
		if after == "" || id < after {
			ids = append(ids, id)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	keys := make([]map[string]types.AttributeValue, 0, len(ids))
	for _, id := range ids {
		key, err := services.Key(partitionKey(id), rootSK)
		if err != nil {
			return data.QueryResults[data.RecipeDTO]{}, err
		}
		keys = append(keys, key)
	}
	roots, err := rs.batchGetRoots(ctx, keys)
	if err != nil {
		return data.QueryResults[data.RecipeDTO]{}, err
	}
	limit := int(*params.GetLimit())
	results := data.QueryResults[data.RecipeDTO]{Items: []data.RecipeDTO{}}
	for _, id := range ids {
		root, ok := roots[id]
		if !ok || (filter.Author != nil && root.Author != *filter.Author) || !matchesTags(root, filter.Tags) {
			continue
		}
		if len(results.Items) == limit {
			last, err := attributevalue.Marshal(results.Items[limit-1].Id)
			if err != nil {
				return results, err
			}
			results.NextToken, err = rs.TokenMarshaler.Marshal(scope, map[string]types.AttributeValue{"recipeId": last})
			return results, err
		}
		results.Items = append(results.Items, root)
	}
	return results, nil
}

func (rs *RecipeDynamoDBService) batchGetRoots(ctx context.Context, keys []map[string]types.AttributeValue) (map[string]data.RecipeDTO, error) {
	roots := make(map[string]data.RecipeDTO, len(keys))
	for start := 0; start < len(keys); start += 100 {
		end := start + 100
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
				var root data.RecipeDTO
				if err := attributevalue.UnmarshalMap(item, &root); err != nil {
					return nil, err
				}
				roots[root.Id] = root
			}
			request = output.UnprocessedKeys
		}
	}
	return roots, nil
}

func (rs *RecipeDynamoDBService) CountByAuthor(ctx context.Context, author string) (int, error) {
	keyEx := expression.Key("GS2-PK").Equal(expression.Value(services.PrimaryKey(author, Name)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyEx).Build()
	if err != nil {
		return 0, err
	}
	paginator := dynamodb.NewQueryPaginator(rs.DynamoDB, &dynamodb.QueryInput{
		TableName:                 aws.String(rs.TableName),
		IndexName:                 aws.String(rs.SecondIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Select:                    types.SelectCount,
	})
	count := 0
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, err
		}
		count += int(output.Count)
	}
	return count, nil
}
