// Package loader seeds the ingredient and tag catalog from JSON files.
package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"philcali.me/foodgram/internal/data"
	"philcali.me/foodgram/internal/exceptions"
)

type ingredientEntry struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

type tagEntry struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Slug  string `json:"slug"`
}

// Summary counts what a load did. Duplicates already in the catalog are
// skipped, not failures.
type Summary struct {
	Loaded  int
	Skipped int
}

type Loader struct {
	Catalog data.CatalogRepository
}

func NewLoader(catalog data.CatalogRepository) *Loader {
	return &Loader{
		Catalog: catalog,
	}
}

func decode[T interface{}](r io.Reader) ([]T, error) {
	var entries []T
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	return entries, nil
}

func (s *Summary) record(err error, kind string, label string) error {
	var conflict *exceptions.ConflictError
	if errors.As(err, &conflict) {
		log.Warn().Str(kind, label).Msg("Already in the catalog, skipping")
		s.Skipped++
		return nil
	}
	if err != nil {
		return err
	}
	s.Loaded++
	return nil
}

func (l *Loader) LoadIngredients(ctx context.Context, r io.Reader) (Summary, error) {
	summary := Summary{}
	entries, err := decode[ingredientEntry](r)
	if err != nil {
		return summary, err
	}
	for _, entry := range entries {
		if entry.Name == "" || entry.MeasurementUnit == "" {
			return summary, fmt.Errorf("ingredient entry %d is missing a name or measurement_unit", summary.Loaded+summary.Skipped)
		}
		_, err := l.Catalog.CreateIngredient(ctx, data.IngredientInputDTO{
			Name:            &entry.Name,
			MeasurementUnit: &entry.MeasurementUnit,
		})
		if err := summary.record(err, "ingredient", entry.Name+" ("+entry.MeasurementUnit+")"); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

func (l *Loader) LoadTags(ctx context.Context, r io.Reader) (Summary, error) {
	summary := Summary{}
	entries, err := decode[tagEntry](r)
	if err != nil {
		return summary, err
	}
	for _, entry := range entries {
		if entry.Name == "" || entry.Color == "" || entry.Slug == "" {
			return summary, fmt.Errorf("tag entry %d is missing a name, color or slug", summary.Loaded+summary.Skipped)
		}
		_, err := l.Catalog.CreateTag(ctx, data.TagInputDTO{
			Name:  &entry.Name,
			Color: &entry.Color,
			Slug:  &entry.Slug,
		})
		if err := summary.record(err, "tag", entry.Slug); err != nil {
			return summary, err
		}
	}
	return summary, nil
}
