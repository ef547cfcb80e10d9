package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"philcali.me/foodgram/internal/data"
	"philcali.me/foodgram/internal/exceptions"
)

type Catalog struct {
	mu          sync.Mutex
	Tags        map[string]data.TagDTO
	Ingredients map[string]data.IngredientDTO
}

func NewCatalog() *Catalog {
	return &Catalog{
		Tags:        map[string]data.TagDTO{},
		Ingredients: map[string]data.IngredientDTO{},
	}
}

func (c *Catalog) GetTags(ctx context.Context, ids []string) (map[string]data.TagDTO, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	found := map[string]data.TagDTO{}
	for _, id := range ids {
		if tag, ok := c.Tags[id]; ok {
			found[id] = tag
		}
	}
	return found, nil
}

func (c *Catalog) GetIngredients(ctx context.Context, ids []string) (map[string]data.IngredientDTO, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	found := map[string]data.IngredientDTO{}
	for _, id := range ids {
		if ingredient, ok := c.Ingredients[id]; ok {
			found[id] = ingredient
		}
	}
	return found, nil
}

func (c *Catalog) GetTag(ctx context.Context, id string) (data.TagDTO, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tag, ok := c.Tags[id]
	if !ok {
		return tag, exceptions.NotFound("tag", id)
	}
	return tag, nil
}

func (c *Catalog) ListTags(ctx context.Context) ([]data.TagDTO, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tags := make([]data.TagDTO, 0, len(c.Tags))
	for _, tag := range c.Tags {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

func (c *Catalog) CreateTag(ctx context.Context, input data.TagInputDTO) (data.TagDTO, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tag := range c.Tags {
		if tag.Name == *input.Name || strings.EqualFold(tag.Color, *input.Color) || tag.Slug == *input.Slug {
			return tag, exceptions.Conflict("tag", tag.SK)
		}
	}
	id := uuid.NewString()
	tag := data.TagDTO{PK: "Global:Tag", SK: id, Name: *input.Name, Color: *input.Color, Slug: *input.Slug, CreateTime: time.Now()}
	c.Tags[id] = tag
	return tag, nil
}

func (c *Catalog) GetIngredient(ctx context.Context, id string) (data.IngredientDTO, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ingredient, ok := c.Ingredients[id]
	if !ok {
		return ingredient, exceptions.NotFound("ingredient", id)
	}
	return ingredient, nil
}

func (c *Catalog) ListIngredients(ctx context.Context, namePrefix string, params data.QueryParams) (data.QueryResults[data.IngredientDTO], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	byKey := map[string]data.IngredientDTO{}
	keys := []string{}
	for id, ingredient := range c.Ingredients {
		if strings.HasPrefix(strings.ToLower(ingredient.Name), strings.ToLower(namePrefix)) {
			key := strings.ToLower(ingredient.Name) + "#" + id
			byKey[key] = ingredient
			keys = append(keys, key)
		}
	}
	return page(keys, func(key string) data.IngredientDTO { return byKey[key] }, params), nil
}

func (c *Catalog) CreateIngredient(ctx context.Context, input data.IngredientInputDTO) (data.IngredientDTO, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ingredient := range c.Ingredients {
		if strings.EqualFold(ingredient.Name, *input.Name) && ingredient.MeasurementUnit == *input.MeasurementUnit {
			return ingredient, exceptions.Conflict("ingredient", ingredient.SK)
		}
	}
	id := uuid.NewString()
	ingredient := data.IngredientDTO{PK: "Global:Ingredient", SK: id, Name: *input.Name, MeasurementUnit: *input.MeasurementUnit, CreateTime: time.Now()}
	c.Ingredients[id] = ingredient
	return ingredient, nil
}

type Users struct {
	mu    sync.Mutex
	Items map[string]data.UserDTO
}

func NewUsers() *Users {
	return &Users{Items: map[string]data.UserDTO{}}
}

func (u *Users) Get(ctx context.Context, username string) (data.UserDTO, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.Items[username]
	if !ok {
		return user, exceptions.NotFound("user", username)
	}
	return user, nil
}

func (u *Users) BatchGet(ctx context.Context, usernames []string) (map[string]data.UserDTO, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	found := map[string]data.UserDTO{}
	for _, username := range usernames {
		if user, ok := u.Items[username]; ok {
			found[username] = user
		}
	}
	return found, nil
}

func (u *Users) List(ctx context.Context, params data.QueryParams) (data.QueryResults[data.UserDTO], error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	ids := make([]string, 0, len(u.Items))
	for id := range u.Items {
		ids = append(ids, id)
	}
	return page(ids, func(id string) data.UserDTO { return u.Items[id] }, params), nil
}

func (u *Users) Save(ctx context.Context, input data.UserInputDTO) (data.UserDTO, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.Items[input.Username]
	if !ok {
		user = data.UserDTO{PK: "Global:User", SK: input.Username, Username: input.Username, CreateTime: time.Now()}
	}
	if input.Email != nil {
		for _, other := range u.Items {
			if other.Username != input.Username && strings.EqualFold(other.Email, *input.Email) {
				return user, exceptions.Conflict("email", *input.Email)
			}
		}
		user.Email = *input.Email
	}
	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	user.UpdateTime = time.Now()
	u.Items[input.Username] = user
	return user, nil
}

type Recipes struct {
	mu    sync.Mutex
	Items map[string]data.RecipeAggregate
}

func NewRecipes() *Recipes {
	return &Recipes{Items: map[string]data.RecipeAggregate{}}
}

func (r *Recipes) Get(ctx context.Context, recipeId string) (data.RecipeAggregate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	recipe, ok := r.Items[recipeId]
	if !ok {
		return recipe, exceptions.NotFound("recipe", recipeId)
	}
	return recipe, nil
}

func (r *Recipes) matches(recipe data.RecipeDTO, filter data.RecipeFilter) bool {
	if filter.Author != nil && recipe.Author != *filter.Author {
		return false
	}
	if len(filter.Tags) == 0 {
		return true
	}
	for _, want := range filter.Tags {
		for _, slug := range recipe.TagSlugs {
			if slug == want {
				return true
			}
		}
	}
	return false
}

// List pages newest first by inverting the id order.
func (r *Recipes) List(ctx context.Context, filter data.RecipeFilter, params data.QueryParams) (data.QueryResults[data.RecipeAggregate], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	candidates := filter.Ids
	if candidates == nil {
		for id := range r.Items {
			candidates = append(candidates, id)
		}
	}
	ids := []string{}
	for _, id := range candidates {
		if recipe, ok := r.Items[id]; ok && r.matches(recipe.Recipe, filter) {
			ids = append(ids, id)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	start := 0
	if params.NextToken != nil {
		for i, id := range ids {
			if id == *params.NextToken {
				start = i + 1
			}
		}
	}
	limit := int(*params.GetLimit())
	results := data.QueryResults[data.RecipeAggregate]{Items: []data.RecipeAggregate{}}
	for i := start; i < len(ids) && len(results.Items) < limit; i++ {
		results.Items = append(results.Items, r.Items[ids[i]])
		if len(results.Items) == limit && i+1 < len(ids) {
			next := ids[i]
			results.NextToken = &next
		}
	}
	return results, nil
}

func (r *Recipes) CountByAuthor(ctx context.Context, author string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, recipe := range r.Items {
		if recipe.Recipe.Author == author {
			count++
		}
	}
	return count, nil
}

func (r *Recipes) nameTaken(author string, name string, except string) bool {
	for id, recipe := range r.Items {
		if id != except && recipe.Recipe.Author == author && recipe.Recipe.Name == name {
			return true
		}
	}
	return false
}

func applyLinks(aggregate *data.RecipeAggregate, input data.RecipeInputDTO) {
	id := aggregate.Recipe.Id
	if input.Tags != nil {
		aggregate.Tags = []data.RecipeTagDTO{}
		aggregate.Recipe.TagSlugs = []string{}
		for _, tag := range *input.Tags {
			aggregate.Tags = append(aggregate.Tags, data.RecipeTagDTO{PK: id + ":Recipe", SK: "Tag:" + tag.SK, TagId: tag.SK, Name: tag.Name, Color: tag.Color, Slug: tag.Slug})
			aggregate.Recipe.TagSlugs = append(aggregate.Recipe.TagSlugs, tag.Slug)
		}
	}
	if input.Ingredients != nil {
		aggregate.Ingredients = []data.RecipeIngredientDTO{}
		seen := map[string]bool{}
		for _, ingredient := range *input.Ingredients {
			if seen[ingredient.Ingredient.SK] {
				continue
			}
			seen[ingredient.Ingredient.SK] = true
			aggregate.Ingredients = append(aggregate.Ingredients, data.RecipeIngredientDTO{
				PK:              id + ":Recipe",
				SK:              "Ingredient:" + ingredient.Ingredient.SK,
				IngredientId:    ingredient.Ingredient.SK,
				Name:            ingredient.Ingredient.Name,
				MeasurementUnit: ingredient.Ingredient.MeasurementUnit,
				Amount:          ingredient.Amount,
			})
		}
	}
}

func (r *Recipes) Create(ctx context.Context, input data.RecipeInputDTO) (data.RecipeAggregate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.nameTaken(input.Author, *input.Name, "") {
		return data.RecipeAggregate{}, exceptions.Conflict("recipe name", *input.Name)
	}
	gid, err := uuid.NewV7()
	if err != nil {
		return data.RecipeAggregate{}, err
	}
	now := time.Now()
	aggregate := data.RecipeAggregate{
		Recipe: data.RecipeDTO{
			PK:          gid.String() + ":Recipe",
			SK:          "Recipe",
			Id:          gid.String(),
			Name:        *input.Name,
			Author:      input.Author,
			Image:       *input.Image,
			Text:        *input.Text,
			CookingTime: *input.CookingTime,
			Version:     1,
			PubDate:     now,
			UpdateTime:  now,
		},
	}
	applyLinks(&aggregate, input)
	r.Items[aggregate.Recipe.Id] = aggregate
	return aggregate, nil
}

func (r *Recipes) Update(ctx context.Context, recipeId string, input data.RecipeInputDTO) (data.RecipeAggregate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	aggregate, ok := r.Items[recipeId]
	if !ok {
		return aggregate, exceptions.NotFound("recipe", recipeId)
	}
	if input.Name != nil {
		if r.nameTaken(aggregate.Recipe.Author, *input.Name, recipeId) {
			return aggregate, exceptions.Conflict("recipe name", *input.Name)
		}
		aggregate.Recipe.Name = *input.Name
	}
	if input.Text != nil {
		aggregate.Recipe.Text = *input.Text
	}
	if input.Image != nil {
		aggregate.Recipe.Image = *input.Image
	}
	if input.CookingTime != nil {
		aggregate.Recipe.CookingTime = *input.CookingTime
	}
	applyLinks(&aggregate, input)
	aggregate.Recipe.Version++
	aggregate.Recipe.UpdateTime = time.Now()
	r.Items[recipeId] = aggregate
	return aggregate, nil
}

func (r *Recipes) Delete(ctx context.Context, recipeId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Items[recipeId]; !ok {
		return exceptions.NotFound("recipe", recipeId)
	}
	delete(r.Items, recipeId)
	return nil
}
