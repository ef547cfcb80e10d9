//go:build integration

package recipes_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"philcali.me/foodgram/internal/data"
	"philcali.me/foodgram/internal/dynamodb/catalog"
	"philcali.me/foodgram/internal/dynamodb/recipes"
	"philcali.me/foodgram/internal/dynamodb/token"
	"philcali.me/foodgram/internal/exceptions"
	"philcali.me/foodgram/internal/test"
)

func linkIds(aggregate data.RecipeAggregate) ([]string, map[string]int) {
	tags := []string{}
	for _, tag := range aggregate.Tags {
		tags = append(tags, tag.TagId)
	}
	amounts := map[string]int{}
	for _, ingredient := range aggregate.Ingredients {
		amounts[ingredient.IngredientId] = ingredient.Amount
	}
	return tags, amounts
}

func TestRecipeService(t *testing.T) {
	client := test.NewTable(t)
	ctx := context.Background()
	marshaler := token.NewGCM()
	catalogService := catalog.NewCatalogService(test.TableName, test.FirstIndex, client, marshaler)
	service := recipes.NewRecipeService(test.TableName, test.FirstIndex, test.SecondIndex, client, marshaler)

	breakfast, err := catalogService.CreateTag(ctx, data.TagInputDTO{Name: aws.String("Breakfast"), Color: aws.String("#E26C2D"), Slug: aws.String("breakfast")})
	require.NoError(t, err)
	lunch, err := catalogService.CreateTag(ctx, data.TagInputDTO{Name: aws.String("Lunch"), Color: aws.String("#49B64E"), Slug: aws.String("lunch")})
	require.NoError(t, err)
	flour, err := catalogService.CreateIngredient(ctx, data.IngredientInputDTO{Name: aws.String("flour"), MeasurementUnit: aws.String("g")})
	require.NoError(t, err)
	eggs, err := catalogService.CreateIngredient(ctx, data.IngredientInputDTO{Name: aws.String("eggs"), MeasurementUnit: aws.String("pcs")})
	require.NoError(t, err)

	input := func(name string, tags []data.TagDTO, ingredients []data.IngredientAmountDTO) data.RecipeInputDTO {
		return data.RecipeInputDTO{
			Name:        aws.String(name),
			Text:        aws.String("Mix and bake."),
			Image:       aws.String("data:image/png;base64,AAAA"),
			CookingTime: aws.Int(30),
			Author:      "alice",
			Tags:        &tags,
			Ingredients: &ingredients,
		}
	}

	var created data.RecipeAggregate
	t.Run("CreateThenGet", func(t *testing.T) {
		created, err = service.Create(ctx, input("Pancakes", []data.TagDTO{breakfast}, []data.IngredientAmountDTO{
			{Ingredient: flour, Amount: 200},
			{Ingredient: eggs, Amount: 2},
		}))
		require.NoError(t, err)
		fetched, err := service.Get(ctx, created.Recipe.Id)
		require.NoError(t, err)
		tags, amounts := linkIds(fetched)
		assert.Equal(t, []string{breakfast.SK}, tags)
		assert.Equal(t, map[string]int{flour.SK: 200, eggs.SK: 2}, amounts)
		assert.Equal(t, "alice", fetched.Recipe.Author)
		assert.Equal(t, 1, fetched.Recipe.Version)
	})

	t.Run("NameConflict", func(t *testing.T) {
		_, err := service.Create(ctx, input("Pancakes", []data.TagDTO{lunch}, []data.IngredientAmountDTO{{Ingredient: eggs, Amount: 1}}))
		var conflict *exceptions.ConflictError
		assert.ErrorAs(t, err, &conflict)
	})

	t.Run("UnknownTagLeavesNoRows", func(t *testing.T) {
		ghost := data.TagDTO{SK: "missing-tag", Name: "Ghost", Slug: "ghost"}
		_, err := service.Create(ctx, input("Omelette", []data.TagDTO{ghost}, []data.IngredientAmountDTO{{Ingredient: eggs, Amount: 3}}))
		var validation *exceptions.ValidationError
		require.ErrorAs(t, err, &validation)
		assert.Equal(t, exceptions.UNKNOWN_TAG, validation.Kind)
		count, err := service.CountByAuthor(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("NameOnlyUpdateKeepsSets", func(t *testing.T) {
		updated, err := service.Update(ctx, created.Recipe.Id, data.RecipeInputDTO{Name: aws.String("Fluffy Pancakes")})
		require.NoError(t, err)
		assert.Equal(t, "Fluffy Pancakes", updated.Recipe.Name)
		assert.Equal(t, 2, updated.Recipe.Version)
		tags, amounts := linkIds(updated)
		assert.Equal(t, []string{breakfast.SK}, tags)
		assert.Equal(t, map[string]int{flour.SK: 200, eggs.SK: 2}, amounts)

		_, err = service.Create(ctx, input("Pancakes", []data.TagDTO{lunch}, []data.IngredientAmountDTO{{Ingredient: eggs, Amount: 1}}))
		assert.NoError(t, err, "the old name is released")
	})

	t.Run("IngredientReplacementDropsOmitted", func(t *testing.T) {
		ingredients := []data.IngredientAmountDTO{{Ingredient: eggs, Amount: 4}}
		tags := []data.TagDTO{lunch}
		updated, err := service.Update(ctx, created.Recipe.Id, data.RecipeInputDTO{Ingredients: &ingredients, Tags: &tags})
		require.NoError(t, err)
		tagIds, amounts := linkIds(updated)
		assert.Equal(t, []string{lunch.SK}, tagIds)
		assert.Equal(t, map[string]int{eggs.SK: 4}, amounts)
		assert.Equal(t, []string{"lunch"}, updated.Recipe.TagSlugs)
	})

	t.Run("List", func(t *testing.T) {
		all, err := service.List(ctx, data.RecipeFilter{}, data.QueryParams{})
		require.NoError(t, err)
		require.Len(t, all.Items, 2)
		assert.True(t, all.Items[0].Recipe.Id > all.Items[1].Recipe.Id, "newest first")

		byTag, err := service.List(ctx, data.RecipeFilter{Tags: []string{"breakfast", "lunch"}}, data.QueryParams{})
		require.NoError(t, err)
		assert.Len(t, byTag.Items, 2)

		byAuthor, err := service.List(ctx, data.RecipeFilter{Author: aws.String("bob")}, data.QueryParams{})
		require.NoError(t, err)
		assert.Empty(t, byAuthor.Items)

		paged, err := service.List(ctx, data.RecipeFilter{Ids: []string{created.Recipe.Id, all.Items[0].Recipe.Id, "unknown"}}, data.QueryParams{Limit: 1})
		require.NoError(t, err)
		require.Len(t, paged.Items, 1)
		require.NotNil(t, paged.NextToken)
		next, err := service.List(ctx, data.RecipeFilter{Ids: []string{created.Recipe.Id, all.Items[0].Recipe.Id, "unknown"}}, data.QueryParams{Limit: 1, NextToken: paged.NextToken})
		require.NoError(t, err)
		require.Len(t, next.Items, 1)
		assert.Nil(t, next.NextToken)
		assert.NotEqual(t, paged.Items[0].Recipe.Id, next.Items[0].Recipe.Id)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, service.Delete(ctx, created.Recipe.Id))
		_, err := service.Get(ctx, created.Recipe.Id)
		var notFound *exceptions.NotFoundError
		assert.ErrorAs(t, err, &notFound)
		_, err = service.Create(ctx, input("Fluffy Pancakes", []data.TagDTO{breakfast}, []data.IngredientAmountDTO{{Ingredient: flour, Amount: 1}}))
		assert.NoError(t, err)
	})

	t.Run("UnknownIngredientLeavesNoRows", func(t *testing.T) {
		before, err := service.CountByAuthor(ctx, "alice")
		require.NoError(t, err)
		ghost := data.IngredientDTO{SK: "missing-ingredient", Name: "ghost", MeasurementUnit: "g"}
		_, err = service.Create(ctx, input("Porridge", []data.TagDTO{breakfast}, []data.IngredientAmountDTO{{Ingredient: ghost, Amount: 3}}))
		var validation *exceptions.ValidationError
		require.ErrorAs(t, err, &validation)
		assert.Equal(t, exceptions.UNKNOWN_INGREDIENT, validation.Kind)
		assert.Equal(t, "missing-ingredient", validation.Id)
		after, err := service.CountByAuthor(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("RenameToTakenNameConflicts", func(t *testing.T) {
		waffles, err := service.Create(ctx, input("Waffles", []data.TagDTO{breakfast}, []data.IngredientAmountDTO{{Ingredient: flour, Amount: 250}}))
		require.NoError(t, err)
		_, err = service.Update(ctx, waffles.Recipe.Id, data.RecipeInputDTO{Name: aws.String("Pancakes")})
		var conflict *exceptions.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "recipe name", conflict.Resource)
		fetched, err := service.Get(ctx, waffles.Recipe.Id)
		require.NoError(t, err)
		assert.Equal(t, "Waffles", fetched.Recipe.Name)
		assert.Equal(t, 1, fetched.Recipe.Version)
	})

	t.Run("StaleVersionConflicts", func(t *testing.T) {
		crepes, err := service.Create(ctx, input("Crepes", []data.TagDTO{breakfast}, []data.IngredientAmountDTO{{Ingredient: eggs, Amount: 2}}))
		require.NoError(t, err)
		read, err := service.Get(ctx, crepes.Recipe.Id)
		require.NoError(t, err)

		lunchOnly := []data.TagDTO{lunch}
		first, err := service.UpdateFrom(ctx, read, data.RecipeInputDTO{Tags: &lunchOnly})
		require.NoError(t, err)
		assert.Equal(t, 2, first.Recipe.Version)

		moreFlour := []data.IngredientAmountDTO{{Ingredient: flour, Amount: 100}}
		breakfastOnly := []data.TagDTO{breakfast}
		_, err = service.UpdateFrom(ctx, read, data.RecipeInputDTO{Tags: &breakfastOnly, Ingredients: &moreFlour})
		var conflict *exceptions.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "recipe", conflict.Resource)
		assert.Equal(t, crepes.Recipe.Id, conflict.Id)

		fetched, err := service.Get(ctx, crepes.Recipe.Id)
		require.NoError(t, err)
		assert.Equal(t, 2, fetched.Recipe.Version)
		tags, amounts := linkIds(fetched)
		assert.Equal(t, []string{lunch.SK}, tags)
		assert.Equal(t, map[string]int{eggs.SK: 2}, amounts)
	})
}
