package data

import (
	"context"
	"time"
)

type IngredientDTO struct {
	PK              string    `dynamodbav:"PK"`
	SK              string    `dynamodbav:"SK"`
	FirstIndex      string    `dynamodbav:"GS1-PK"`
	FirstSort       string    `dynamodbav:"GS1-SK"`
	Name            string    `dynamodbav:"name"`
	MeasurementUnit string    `dynamodbav:"measurementUnit"`
	CreateTime      time.Time `dynamodbav:"createTime"`
}

type IngredientInputDTO struct {
	Name            *string
	MeasurementUnit *string
}

type TagDTO struct {
	PK         string    `dynamodbav:"PK"`
	SK         string    `dynamodbav:"SK"`
	Name       string    `dynamodbav:"name"`
	Color      string    `dynamodbav:"color"`
	Slug       string    `dynamodbav:"slug"`
	CreateTime time.Time `dynamodbav:"createTime"`
}

type TagInputDTO struct {
	Name  *string
	Color *string
	Slug  *string
}

// CatalogReader is the read-only view of reference data a recipe is
// validated against. Missing ids are absent from the returned maps.
type CatalogReader interface {
	GetTags(ctx context.Context, ids []string) (map[string]TagDTO, error)
	GetIngredients(ctx context.Context, ids []string) (map[string]IngredientDTO, error)
}

type CatalogRepository interface {
	CatalogReader
	GetTag(ctx context.Context, id string) (TagDTO, error)
	ListTags(ctx context.Context) ([]TagDTO, error)
	CreateTag(ctx context.Context, input TagInputDTO) (TagDTO, error)
	GetIngredient(ctx context.Context, id string) (IngredientDTO, error)
	ListIngredients(ctx context.Context, namePrefix string, params QueryParams) (QueryResults[IngredientDTO], error)
	CreateIngredient(ctx context.Context, input IngredientInputDTO) (IngredientDTO, error)
}
