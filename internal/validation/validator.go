// Package validation turns a raw recipe payload into a reference-resolved
// data.RecipeInputDTO, or the first rule it violates.
package validation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"philcali.me/foodgram/internal/config"
	"philcali.me/foodgram/internal/data"
	"philcali.me/foodgram/internal/exceptions"
)

type Mode int

const (
	// Create requires every field.
	Create Mode = iota
	// Partial checks only the fields present in the payload.
	Partial
)

type RecipeValidator struct {
	Catalog  data.CatalogReader
	Limits   config.RecipeConfig
	validate *validator.Validate
}

func NewRecipeValidator(catalog data.CatalogReader, limits config.RecipeConfig) *RecipeValidator {
	return &RecipeValidator{
		Catalog:  catalog,
		Limits:   limits,
		validate: validator.New(),
	}
}

type recipePayload struct {
	Name        *string         `json:"name"`
	Text        *string         `json:"text"`
	Image       *string         `json:"image"`
	CookingTime json.RawMessage `json:"cooking_time"`
	Tags        json.RawMessage `json:"tags"`
	Ingredients json.RawMessage `json:"ingredients"`
}

type ingredientEntry struct {
	Id     json.RawMessage `json:"id"`
	Amount json.RawMessage `json:"amount"`
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// parseId accepts ids sent either as JSON strings or bare numbers.
func parseId(raw json.RawMessage) (string, bool) {
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id, id != ""
	}
	var number json.Number
	if err := json.Unmarshal(raw, &number); err == nil {
		return number.String(), true
	}
	return "", false
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// parseWhole accepts a JSON integer or a string of digits.
func parseWhole(raw json.RawMessage) (int, bool) {
	trimmed := bytes.TrimSpace(raw)
	literal := string(trimmed)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &literal); err != nil {
			return 0, false
		}
	}
	if !isDigits(literal) {
		return 0, false
	}
	value, err := strconv.Atoi(literal)
	return value, err == nil
}

func (rv *RecipeValidator) checkScalar(field string, value *string, rules string, mode Mode) error {
	if value == nil {
		if mode == Create {
			return exceptions.InvalidField(field, "required")
		}
		return nil
	}
	if err := rv.validate.Var(*value, rules); err != nil {
		var reason string
		if fieldErrors, ok := err.(validator.ValidationErrors); ok && len(fieldErrors) > 0 {
			reason = fieldErrors[0].Tag()
			if param := fieldErrors[0].Param(); param != "" {
				reason = fmt.Sprintf("%s=%s", reason, param)
			}
		} else {
			reason = err.Error()
		}
		return exceptions.InvalidField(field, reason)
	}
	return nil
}

func (rv *RecipeValidator) parseTags(raw json.RawMessage) ([]string, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, exceptions.InvalidShape("tags")
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		id, ok := parseId(entry)
		if !ok {
			return nil, exceptions.InvalidShape("tags")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (rv *RecipeValidator) parseIngredients(raw json.RawMessage) ([]ingredientEntry, error) {
	var entries []ingredientEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, exceptions.InvalidShape("ingredients")
	}
	return entries, nil
}

// Validate checks payload rule by rule and stops at the first violation.
// Catalog lookups are reads only.
func (rv *RecipeValidator) Validate(ctx context.Context, payload []byte, author string, mode Mode) (data.RecipeInputDTO, error) {
	input := data.RecipeInputDTO{Author: author}
	var body recipePayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return input, exceptions.InvalidInput("request body must be a JSON object")
	}
	nameRules := fmt.Sprintf("required,max=%d", rv.Limits.MaxNameLength)
	if err := rv.checkScalar("name", body.Name, nameRules, mode); err != nil {
		return input, err
	}
	if err := rv.checkScalar("text", body.Text, "required", mode); err != nil {
		return input, err
	}
	if err := rv.checkScalar("image", body.Image, "required", mode); err != nil {
		return input, err
	}
	input.Name = body.Name
	input.Text = body.Text
	input.Image = body.Image

	hasTags := present(body.Tags)
	if (hasTags || mode == Create) && !isArray(body.Tags) {
		return input, exceptions.InvalidShape("tags")
	}
	hasIngredients := present(body.Ingredients)
	if (hasIngredients || mode == Create) && !isArray(body.Ingredients) {
		return input, exceptions.InvalidShape("ingredients")
	}
	var tagIds []string
	var entries []ingredientEntry
	var err error
	if hasTags {
		if tagIds, err = rv.parseTags(body.Tags); err != nil {
			return input, err
		}
		if len(tagIds) == 0 {
			return input, exceptions.InvalidShape("tags")
		}
	}
	if hasIngredients {
		if entries, err = rv.parseIngredients(body.Ingredients); err != nil {
			return input, err
		}
		if len(entries) == 0 {
			return input, exceptions.InvalidShape("ingredients")
		}
	}

	if hasTags {
		found, err := rv.Catalog.GetTags(ctx, tagIds)
		if err != nil {
			return input, err
		}
		tags := make([]data.TagDTO, 0, len(tagIds))
		for _, id := range tagIds {
			tag, ok := found[id]
			if !ok {
				return input, exceptions.UnknownTag(id)
			}
			tags = append(tags, tag)
		}
		input.Tags = &tags
	}

	if present(body.CookingTime) || mode == Create {
		cookingTime, ok := parseWhole(body.CookingTime)
		if !ok || cookingTime < rv.Limits.MinCookingTime || cookingTime > rv.Limits.MaxCookingTime {
			return input, exceptions.InvalidCookingTime(rv.Limits.MinCookingTime, rv.Limits.MaxCookingTime)
		}
		input.CookingTime = &cookingTime
	}

	if hasIngredients {
		ids := make([]string, 0, len(entries))
		for _, entry := range entries {
			id, ok := parseId(entry.Id)
			if !ok {
				return input, exceptions.InvalidShape("ingredients")
			}
			ids = append(ids, id)
		}
		found, err := rv.Catalog.GetIngredients(ctx, ids)
		if err != nil {
			return input, err
		}
		seen := make(map[string]bool, len(entries))
		ingredients := make([]data.IngredientAmountDTO, 0, len(entries))
		for _, entry := range entries {
			id, _ := parseId(entry.Id)
			ingredient, ok := found[id]
			if !ok {
				return input, exceptions.UnknownIngredient(id)
			}
			amount, ok := parseWhole(entry.Amount)
			if !ok || amount < rv.Limits.MinAmount || amount > rv.Limits.MaxAmount {
				invalid := exceptions.InvalidAmount(ingredient.Name, rv.Limits.MinAmount, rv.Limits.MaxAmount)
				invalid.Id = id
				return input, invalid
			}
			if seen[id] {
				return input, exceptions.DuplicateIngredient(id, ingredient.Name)
			}
			seen[id] = true
			ingredients = append(ingredients, data.IngredientAmountDTO{
				Ingredient: ingredient,
				Amount:     amount,
			})
		}
		input.Ingredients = &ingredients
	}
	return input, nil
}
