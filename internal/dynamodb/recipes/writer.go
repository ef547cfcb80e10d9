package recipes

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"philcali.me/foodgram/internal/data"
	"philcali.me/foodgram/internal/dynamodb/catalog"
	"philcali.me/foodgram/internal/dynamodb/services"
	"philcali.me/foodgram/internal/exceptions"
)

type actionKind int

const (
	actionRoot actionKind = iota
	actionNameMarker
	actionLink
	actionTagCheck
	actionIngredientCheck
)

type action struct {
	kind actionKind
	id   string
}

// transaction collects write actions alongside what each one guards, so a
// cancellation can be reported as the domain failure that caused it.
type transaction struct {
	tableName string
	items     []types.TransactWriteItem
	actions   []action
}

func (t *transaction) add(item types.TransactWriteItem, kind actionKind, id string) {
	t.items = append(t.items, item)
	t.actions = append(t.actions, action{kind: kind, id: id})
}

func (t *transaction) put(value interface{}, condition *expression.ConditionBuilder, kind actionKind, id string) error {
	item, err := attributevalue.MarshalMap(value)
	if err != nil {
		return err
	}
	put := &types.Put{
		TableName: aws.String(t.tableName),
		Item:      item,
	}
	if condition != nil {
		expr, err := expression.NewBuilder().WithCondition(*condition).Build()
		if err != nil {
			return err
		}
		put.ConditionExpression = expr.Condition()
		put.ExpressionAttributeNames = expr.Names()
		put.ExpressionAttributeValues = expr.Values()
	}
	t.add(types.TransactWriteItem{Put: put}, kind, id)
	return nil
}

func (t *transaction) delete(pk string, sk string, kind actionKind, id string) error {
	key, err := services.Key(pk, sk)
	if err != nil {
		return err
	}
	t.add(types.TransactWriteItem{
		Delete: &types.Delete{
			TableName: aws.String(t.tableName),
			Key:       key,
		},
	}, kind, id)
	return nil
}

func (t *transaction) exists(pk string, sk string, kind actionKind, id string) error {
	key, err := services.Key(pk, sk)
	if err != nil {
		return err
	}
	expr, err := expression.NewBuilder().WithCondition(expression.Name("PK").AttributeExists()).Build()
	if err != nil {
		return err
	}
	t.add(types.TransactWriteItem{
		ConditionCheck: &types.ConditionCheck{
			TableName:                aws.String(t.tableName),
			Key:                      key,
			ConditionExpression:      expr.Condition(),
			ExpressionAttributeNames: expr.Names(),
		},
	}, kind, id)
	return nil
}

func (rs *RecipeDynamoDBService) commit(ctx context.Context, recipeId string, t *transaction) error {
	if len(t.items) > services.MaxTransactionItems {
		return exceptions.InvalidInput(fmt.Sprintf("recipe %s touches %d items, more than the %d a single write allows", recipeId, len(t.items), services.MaxTransactionItems))
	}
	log.Debug().Str("recipeId", recipeId).Int("items", len(t.items)).Msg("Committing recipe transaction")
	_, err := rs.DynamoDB.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: t.items,
	})
	return t.failure(recipeId, err)
}

// failure maps a cancelled transaction to the action that caused it. Any
// failed condition not tied to a catalog row or name marker is the version
// guard on the recipe itself.
func (t *transaction) failure(recipeId string, err error) error {
	failed, ok := services.FailedConditions(err)
	if !ok {
		return err
	}
	for _, index := range failed {
		if index >= len(t.actions) {
			continue
		}
		a := t.actions[index]
		switch a.kind {
		case actionTagCheck:
			return exceptions.UnknownTag(a.id)
		case actionIngredientCheck:
			return exceptions.UnknownIngredient(a.id)
		case actionNameMarker:
			return exceptions.Conflict("recipe name", a.id)
		}
	}
	return exceptions.Conflict("recipe", recipeId)
}

func uniqueTags(tags []data.TagDTO) []data.TagDTO {
	seen := make(map[string]bool, len(tags))
	results := make([]data.TagDTO, 0, len(tags))
	for _, tag := range tags {
		if seen[tag.SK] {
			continue
		}
		seen[tag.SK] = true
		results = append(results, tag)
	}
	return results
}

// uniqueIngredients keeps the first amount given for an ingredient.
func uniqueIngredients(ingredients []data.IngredientAmountDTO) []data.IngredientAmountDTO {
	seen := make(map[string]bool, len(ingredients))
	results := make([]data.IngredientAmountDTO, 0, len(ingredients))
	for _, ingredient := range ingredients {
		if seen[ingredient.Ingredient.SK] {
			continue
		}
		seen[ingredient.Ingredient.SK] = true
		results = append(results, ingredient)
	}
	return results
}

func tagSlugs(tags []data.TagDTO) []string {
	slugs := make([]string, 0, len(tags))
	for _, tag := range tags {
		slugs = append(slugs, tag.Slug)
	}
	return slugs
}

func tagLink(recipeId string, tag data.TagDTO) data.RecipeTagDTO {
	return data.RecipeTagDTO{
		PK:    partitionKey(recipeId),
		SK:    tagSK + tag.SK,
		TagId: tag.SK,
		Name:  tag.Name,
		Color: tag.Color,
		Slug:  tag.Slug,
	}
}

func ingredientLink(recipeId string, ingredient data.IngredientAmountDTO) data.RecipeIngredientDTO {
	return data.RecipeIngredientDTO{
		PK:              partitionKey(recipeId),
		SK:              ingredSK + ingredient.Ingredient.SK,
		IngredientId:    ingredient.Ingredient.SK,
		Name:            ingredient.Ingredient.Name,
		MeasurementUnit: ingredient.Ingredient.MeasurementUnit,
		Amount:          ingredient.Amount,
	}
}

func (t *transaction) putTags(recipeId string, tags []data.TagDTO) error {
	tagPK := services.PrimaryKey(data.GLOBAL_ACCOUNT, catalog.TagName)
	for _, tag := range tags {
		if err := t.put(tagLink(recipeId, tag), nil, actionLink, tag.SK); err != nil {
			return err
		}
		if err := t.exists(tagPK, tag.SK, actionTagCheck, tag.SK); err != nil {
			return err
		}
	}
	return nil
}

func (t *transaction) putIngredients(recipeId string, ingredients []data.IngredientAmountDTO) error {
	ingredientPK := services.PrimaryKey(data.GLOBAL_ACCOUNT, catalog.IngredientName)
	for _, ingredient := range ingredients {
		if err := t.put(ingredientLink(recipeId, ingredient), nil, actionLink, ingredient.Ingredient.SK); err != nil {
			return err
		}
		if err := t.exists(ingredientPK, ingredient.Ingredient.SK, actionIngredientCheck, ingredient.Ingredient.SK); err != nil {
			return err
		}
	}
	return nil
}

func (t *transaction) putNameMarker(author string, name string, recipeId string) error {
	condition := expression.Name("PK").AttributeNotExists()
	return t.put(services.MarkerItem{
		PK:    services.PrimaryKey(author, NameMarker),
		SK:    name,
		Owner: recipeId,
	}, &condition, actionNameMarker, name)
}

func (rs *RecipeDynamoDBService) Create(ctx context.Context, input data.RecipeInputDTO) (data.RecipeAggregate, error) {
	if input.Name == nil || input.Text == nil || input.Image == nil || input.CookingTime == nil || input.Tags == nil || input.Ingredients == nil {
		return data.RecipeAggregate{}, exceptions.InvalidInput("recipe requires name, text, image, cooking_time, tags and ingredients")
	}
	gid, err := uuid.NewV7()
	if err != nil {
		return data.RecipeAggregate{}, err
	}
	recipeId := gid.String()
	now := time.Now()
	tags := uniqueTags(*input.Tags)
	ingredients := uniqueIngredients(*input.Ingredients)
	aggregate := data.RecipeAggregate{
		Recipe: data.RecipeDTO{
			PK:          partitionKey(recipeId),
			SK:          rootSK,
			FirstIndex:  services.PrimaryKey(data.GLOBAL_ACCOUNT, Name),
			FirstSort:   recipeId,
			SecondIndex: services.PrimaryKey(input.Author, Name),
			SecondSort:  recipeId,
			Id:          recipeId,
			Name:        *input.Name,
			Author:      input.Author,
			Image:       *input.Image,
			Text:        *input.Text,
			CookingTime: *input.CookingTime,
			TagSlugs:    tagSlugs(tags),
			Version:     1,
			PubDate:     now,
			UpdateTime:  now,
		},
		Tags:        make([]data.RecipeTagDTO, 0, len(tags)),
		Ingredients: make([]data.RecipeIngredientDTO, 0, len(ingredients)),
	}
	t := &transaction{tableName: rs.TableName}
	if err := t.putNameMarker(input.Author, *input.Name, recipeId); err != nil {
		return aggregate, err
	}
	rootCondition := expression.Name("PK").AttributeNotExists()
	if err := t.put(aggregate.Recipe, &rootCondition, actionRoot, recipeId); err != nil {
		return aggregate, err
	}
	if err := t.putTags(recipeId, tags); err != nil {
		return aggregate, err
	}
	if err := t.putIngredients(recipeId, ingredients); err != nil {
		return aggregate, err
	}
	if err := rs.commit(ctx, recipeId, t); err != nil {
		return aggregate, err
	}
	for _, tag := range tags {
		aggregate.Tags = append(aggregate.Tags, tagLink(recipeId, tag))
	}
	for _, ingredient := range ingredients {
		aggregate.Ingredients = append(aggregate.Ingredients, ingredientLink(recipeId, ingredient))
	}
	sortLinks(&aggregate)
	return aggregate, nil
}

// Update replaces the present scalar fields and, when given, the whole tag
// or ingredient set. The root write is conditioned on the version read
// here, so a concurrent update surfaces as a Conflict.
func (rs *RecipeDynamoDBService) Update(ctx context.Context, recipeId string, input data.RecipeInputDTO) (data.RecipeAggregate, error) {
	current, err := rs.Get(ctx, recipeId)
	if err != nil {
		return current, err
	}
	return rs.UpdateFrom(ctx, current, input)
}

// UpdateFrom applies input over an aggregate read earlier. The write fails
// with a Conflict when the recipe changed since that read.
func (rs *RecipeDynamoDBService) UpdateFrom(ctx context.Context, current data.RecipeAggregate, input data.RecipeInputDTO) (data.RecipeAggregate, error) {
	recipe := current.Recipe
	recipeId := recipe.Id
	t := &transaction{tableName: rs.TableName}
	update := expression.Set(expression.Name("updateTime"), expression.Value(time.Now())).
		Set(expression.Name("version"), expression.Value(recipe.Version+1))
	if input.Name != nil && *input.Name != recipe.Name {
		if err := t.putNameMarker(recipe.Author, *input.Name, recipeId); err != nil {
			return current, err
		}
		if err := t.delete(services.PrimaryKey(recipe.Author, NameMarker), recipe.Name, actionNameMarker, recipe.Name); err != nil {
			return current, err
		}
		update = update.Set(expression.Name("name"), expression.Value(*input.Name))
	}
	if input.Text != nil {
		update = update.Set(expression.Name("text"), expression.Value(*input.Text))
	}
	if input.Image != nil {
		update = update.Set(expression.Name("image"), expression.Value(*input.Image))
	}
	if input.CookingTime != nil {
		update = update.Set(expression.Name("cookingTime"), expression.Value(*input.CookingTime))
	}
	if input.Tags != nil {
		tags := uniqueTags(*input.Tags)
		keep := make(map[string]bool, len(tags))
		for _, tag := range tags {
			keep[tagSK+tag.SK] = true
		}
		for _, link := range current.Tags {
			if !keep[link.SK] {
				if err := t.delete(link.PK, link.SK, actionLink, link.TagId); err != nil {
					return current, err
				}
			}
		}
		if err := t.putTags(recipeId, tags); err != nil {
			return current, err
		}
		update = update.Set(expression.Name("tagSlugs"), expression.Value(tagSlugs(tags)))
	}
	if input.Ingredients != nil {
		ingredients := uniqueIngredients(*input.Ingredients)
		keep := make(map[string]bool, len(ingredients))
		for _, ingredient := range ingredients {
			keep[ingredSK+ingredient.Ingredient.SK] = true
		}
		for _, link := range current.Ingredients {
			if !keep[link.SK] {
				if err := t.delete(link.PK, link.SK, actionLink, link.IngredientId); err != nil {
					return current, err
				}
			}
		}
		if err := t.putIngredients(recipeId, ingredients); err != nil {
			return current, err
		}
	}
	key, err := services.Key(recipe.PK, recipe.SK)
	if err != nil {
		return current, err
	}
	expr, err := expression.NewBuilder().
		WithCondition(expression.Name("version").Equal(expression.Value(recipe.Version))).
		WithUpdate(update).
		Build()
	if err != nil {
		return current, err
	}
	t.add(types.TransactWriteItem{
		Update: &types.Update{
			TableName:                 aws.String(rs.TableName),
			Key:                       key,
			UpdateExpression:          expr.Update(),
			ConditionExpression:       expr.Condition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		},
	}, actionRoot, recipeId)
	if err := rs.commit(ctx, recipeId, t); err != nil {
		return current, err
	}
	return rs.Get(ctx, recipeId)
}

// Delete removes the recipe with its links and name marker. Memberships
// pointing at it are cleaned up from the table stream.
func (rs *RecipeDynamoDBService) Delete(ctx context.Context, recipeId string) error {
	current, err := rs.Get(ctx, recipeId)
	if err != nil {
		return err
	}
	recipe := current.Recipe
	t := &transaction{tableName: rs.TableName}
	key, err := services.Key(recipe.PK, recipe.SK)
	if err != nil {
		return err
	}
	expr, err := expression.NewBuilder().
		WithCondition(expression.Name("version").Equal(expression.Value(recipe.Version))).
		Build()
	if err != nil {
		return err
	}
	t.add(types.TransactWriteItem{
		Delete: &types.Delete{
			TableName:                 aws.String(rs.TableName),
			Key:                       key,
			ConditionExpression:       expr.Condition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		},
	}, actionRoot, recipeId)
	if err := t.delete(services.PrimaryKey(recipe.Author, NameMarker), recipe.Name, actionNameMarker, recipe.Name); err != nil {
		return err
	}
	for _, link := range current.Tags {
		if err := t.delete(link.PK, link.SK, actionLink, link.TagId); err != nil {
			return err
		}
	}
	for _, link := range current.Ingredients {
		if err := t.delete(link.PK, link.SK, actionLink, link.IngredientId); err != nil {
			return err
		}
	}
	return rs.commit(ctx, recipeId, t)
}
