package data

import (
	"context"
	"time"
)

type RecipeDTO struct {
	PK          string    `dynamodbav:"PK"`
	SK          string    `dynamodbav:"SK"`
	FirstIndex  string    `dynamodbav:"GS1-PK"`
	FirstSort   string    `dynamodbav:"GS1-SK"`
	SecondIndex string    `dynamodbav:"GS2-PK"`
	SecondSort  string    `dynamodbav:"GS2-SK"`
	Id          string    `dynamodbav:"recipeId"`
	Name        string    `dynamodbav:"name"`
	Author      string    `dynamodbav:"author"`
	Image       string    `dynamodbav:"image"`
	Text        string    `dynamodbav:"text"`
	CookingTime int       `dynamodbav:"cookingTime"`
	TagSlugs    []string  `dynamodbav:"tagSlugs"`
	Version     int       `dynamodbav:"version"`
	PubDate     time.Time `dynamodbav:"pubDate"`
	UpdateTime  time.Time `dynamodbav:"updateTime"`
}

type RecipeTagDTO struct {
	PK    string `dynamodbav:"PK"`
	SK    string `dynamodbav:"SK"`
	TagId string `dynamodbav:"tagId"`
	Name  string `dynamodbav:"name"`
	Color string `dynamodbav:"color"`
	Slug  string `dynamodbav:"slug"`
}

type RecipeIngredientDTO struct {
	PK              string `dynamodbav:"PK"`
	SK              string `dynamodbav:"SK"`
	IngredientId    string `dynamodbav:"ingredientId"`
	Name            string `dynamodbav:"name"`
	MeasurementUnit string `dynamodbav:"measurementUnit"`
	Amount          int    `dynamodbav:"amount"`
}

// RecipeAggregate is a recipe with everything it owns.
type RecipeAggregate struct {
	Recipe      RecipeDTO
	Tags        []RecipeTagDTO
	Ingredients []RecipeIngredientDTO
}

type IngredientAmountDTO struct {
	Ingredient IngredientDTO
	Amount     int
}

// RecipeInputDTO is a validated, reference-resolved recipe. Nil fields are
// left untouched on update; a non-nil Tags or Ingredients replaces the
// whole set.
type RecipeInputDTO struct {
	Name        *string
	Text        *string
	Image       *string
	CookingTime *int
	Author      string
	Tags        *[]TagDTO
	Ingredients *[]IngredientAmountDTO
}

type RecipeFilter struct {
	// Ids restricts the listing to the given recipes, newest first.
	Ids    []string
	Author *string
	// Tags matches recipes carrying any of the slugs.
	Tags []string
}

type RecipeRepository interface {
	Get(ctx context.Context, recipeId string) (RecipeAggregate, error)
	List(ctx context.Context, filter RecipeFilter, params QueryParams) (QueryResults[RecipeAggregate], error)
	CountByAuthor(ctx context.Context, author string) (int, error)
	Create(ctx context.Context, input RecipeInputDTO) (RecipeAggregate, error)
	Update(ctx context.Context, recipeId string, input RecipeInputDTO) (RecipeAggregate, error)
	Delete(ctx context.Context, recipeId string) error
}
