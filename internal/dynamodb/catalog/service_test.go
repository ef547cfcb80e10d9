//go:build integration

package catalog_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"philcali.me/foodgram/internal/data"
	"philcali.me/foodgram/internal/dynamodb/catalog"
	"philcali.me/foodgram/internal/dynamodb/token"
	"philcali.me/foodgram/internal/exceptions"
	"philcali.me/foodgram/internal/test"
)

func TestCatalogService(t *testing.T) {
	client := test.NewTable(t)
	ctx := context.Background()
	service := catalog.NewCatalogService(test.TableName, test.FirstIndex, client, token.NewGCM())

	t.Run("Ingredients", func(t *testing.T) {
		created := map[string]data.IngredientDTO{}
		for _, name := range []string{"Flour", "flaxseed", "eggs"} {
			ingredient, err := service.CreateIngredient(ctx, data.IngredientInputDTO{Name: aws.String(name), MeasurementUnit: aws.String("g")})
			require.NoError(t, err)
			created[ingredient.SK] = ingredient
		}

		_, err := service.CreateIngredient(ctx, data.IngredientInputDTO{Name: aws.String("flour"), MeasurementUnit: aws.String("g")})
		var conflict *exceptions.ConflictError
		assert.ErrorAs(t, err, &conflict)

		_, err = service.CreateIngredient(ctx, data.IngredientInputDTO{Name: aws.String("flour"), MeasurementUnit: aws.String("cup")})
		assert.NoError(t, err, "same name with another unit is distinct")

		page, err := service.ListIngredients(ctx, "FL", data.QueryParams{})
		require.NoError(t, err)
		names := []string{}
		for _, ingredient := range page.Items {
			names = append(names, ingredient.Name)
		}
		assert.Equal(t, []string{"flaxseed", "Flour", "flour"}, names)

		ids := []string{"missing"}
		for id := range created {
			ids = append(ids, id)
		}
		found, err := service.GetIngredients(ctx, ids)
		require.NoError(t, err)
		assert.Len(t, found, 3)
		assert.NotContains(t, found, "missing")
	})

	t.Run("Tags", func(t *testing.T) {
		_, err := service.CreateTag(ctx, data.TagInputDTO{Name: aws.String("Lunch"), Color: aws.String("#49B64E"), Slug: aws.String("lunch")})
		require.NoError(t, err)
		breakfast, err := service.CreateTag(ctx, data.TagInputDTO{Name: aws.String("Breakfast"), Color: aws.String("#E26C2D"), Slug: aws.String("breakfast")})
		require.NoError(t, err)

		_, err = service.CreateTag(ctx, data.TagInputDTO{Name: aws.String("Dinner"), Color: aws.String("#e26c2d"), Slug: aws.String("dinner")})
		var conflict *exceptions.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "tag color", conflict.Resource)

		tags, err := service.ListTags(ctx)
		require.NoError(t, err)
		require.Len(t, tags, 2)
		assert.Equal(t, "Breakfast", tags[0].Name)

		tag, err := service.GetTag(ctx, breakfast.SK)
		require.NoError(t, err)
		assert.Equal(t, "breakfast", tag.Slug)
	})
}
