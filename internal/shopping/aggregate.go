// Package shopping sums the ingredients of every recipe in a user's cart
// into a downloadable list.
package shopping

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/maps"
	"philcali.me/foodgram/internal/data"
)

// Line is one aggregated entry, unique on Name and Unit.
type Line struct {
	Name   string
	Unit   string
	Amount int
}

type lineKey struct {
	name string
	unit string
}

// Aggregate groups ingredient links by name and unit and sums the amounts.
// Lines come back ordered by name, then unit.
func Aggregate(links []data.RecipeIngredientDTO) []Line {
	totals := make(map[lineKey]int, len(links))
	for _, link := range links {
		totals[lineKey{name: link.Name, unit: link.MeasurementUnit}] += link.Amount
	}
	keys := maps.Keys(totals)
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].name != keys[j].name {
			return keys[i].name < keys[j].name
		}
		return keys[i].unit < keys[j].unit
	})
	lines := make([]Line, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, Line{Name: key.name, Unit: key.unit, Amount: totals[key]})
	}
	return lines
}

func Render(username string, lines []Line) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "Shopping list for %s\n\n", username)
	for _, line := range lines {
		fmt.Fprintf(&builder, "%s (%s) - %d\n", line.Name, line.Unit, line.Amount)
	}
	return builder.String()
}

// CartReader is the slice of the cart storage the list is built from.
type CartReader interface {
	List(ctx context.Context, accountId string, params data.QueryParams) (data.QueryResults[data.MembershipDTO], error)
}

// RecipeReader loads recipes by id.
type RecipeReader interface {
	List(ctx context.Context, filter data.RecipeFilter, params data.QueryParams) (data.QueryResults[data.RecipeAggregate], error)
}

type ShoppingListService struct {
	Carts   CartReader
	Recipes RecipeReader
}

func NewShoppingListService(carts CartReader, recipes RecipeReader) *ShoppingListService {
	return &ShoppingListService{
		Carts:   carts,
		Recipes: recipes,
	}
}

// Lines aggregates the ingredients of every recipe in username's cart.
// Cart entries whose recipe no longer exists are skipped.
func (s *ShoppingListService) Lines(ctx context.Context, username string) ([]Line, error) {
	memberships, err := data.ListAll(func(params data.QueryParams) (data.QueryResults[data.MembershipDTO], error) {
		return s.Carts.List(ctx, username, params)
	})
	if err != nil {
		return nil, err
	}
	if len(memberships) == 0 {
		return []Line{}, nil
	}
	ids := make([]string, 0, len(memberships))
	for _, membership := range memberships {
		ids = append(ids, membership.RecipeId)
	}
	recipes, err := data.ListAll(func(params data.QueryParams) (data.QueryResults[data.RecipeAggregate], error) {
		return s.Recipes.List(ctx, data.RecipeFilter{Ids: ids}, params)
	})
	if err != nil {
		return nil, err
	}
	var links []data.RecipeIngredientDTO
	for _, recipe := range recipes {
		links = append(links, recipe.Ingredients...)
	}
	log.Debug().Str("username", username).Int("recipes", len(recipes)).Int("links", len(links)).Msg("Aggregating shopping list")
	return Aggregate(links), nil
}

// Download renders username's shopping list as plain text.
func (s *ShoppingListService) Download(ctx context.Context, username string) (string, error) {
	lines, err := s.Lines(ctx, username)
	if err != nil {
		return "", err
	}
	return Render(username, lines), nil
}
