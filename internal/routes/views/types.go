// Package views renders stored items into the JSON shapes clients see,
// decorated with the caller's favorites, cart and subscriptions.
package views

import (
	"context"
	"time"

	"golang.org/x/exp/maps"
	"philcali.me/foodgram/internal/data"
)

type Tag struct {
	Id    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Slug  string `json:"slug"`
}

func NewTag(tag data.TagDTO) Tag {
	return Tag{
		Id:    tag.SK,
		Name:  tag.Name,
		Color: tag.Color,
		Slug:  tag.Slug,
	}
}

type Ingredient struct {
	Id              string `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

func NewIngredient(ingredient data.IngredientDTO) Ingredient {
	return Ingredient{
		Id:              ingredient.SK,
		Name:            ingredient.Name,
		MeasurementUnit: ingredient.MeasurementUnit,
	}
}

type RecipeIngredient struct {
	Id              string `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

type User struct {
	Id           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	IsSubscribed bool   `json:"is_subscribed"`
}

func NewUser(user data.UserDTO, subscribed bool) User {
	return User{
		Id:           user.Username,
		Username:     user.Username,
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		IsSubscribed: subscribed,
	}
}

type Recipe struct {
	Id               string             `json:"id"`
	Tags             []Tag              `json:"tags"`
	Author           User               `json:"author"`
	Ingredients      []RecipeIngredient `json:"ingredients"`
	IsFavorited      bool               `json:"is_favorited"`
	IsInShoppingCart bool               `json:"is_in_shopping_cart"`
	Name             string             `json:"name"`
	Image            string             `json:"image"`
	Text             string             `json:"text"`
	CookingTime      int                `json:"cooking_time"`
	PubDate          time.Time          `json:"pub_date"`
}

type RecipeLite struct {
	Id          string `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

func NewRecipeLite(recipe data.RecipeDTO) RecipeLite {
	return RecipeLite{
		Id:          recipe.Id,
		Name:        recipe.Name,
		Image:       recipe.Image,
		CookingTime: recipe.CookingTime,
	}
}

func NewRecipeLiteFromAggregate(aggregate data.RecipeAggregate) RecipeLite {
	return NewRecipeLite(aggregate.Recipe)
}

// Subscription is a followed author with a preview of their recipes.
type Subscription struct {
	User
	Recipes      []RecipeLite `json:"recipes"`
	RecipesCount int          `json:"recipes_count"`
}

// Viewer decorates representations for one caller. Anonymous callers get
// every flag false.
type Viewer struct {
	Profiles      data.UserService
	Favorites     data.MembershipDataService
	Carts         data.MembershipDataService
	Subscriptions data.SubscriptionDataService
}

func NewViewer(users data.UserService, favorites data.MembershipDataService, carts data.MembershipDataService, subscriptions data.SubscriptionDataService) *Viewer {
	return &Viewer{
		Profiles:      users,
		Favorites:     favorites,
		Carts:         carts,
		Subscriptions: subscriptions,
	}
}

func (v *Viewer) subscribedTo(ctx context.Context, username string, authors []string) (map[string]data.SubscriptionDTO, error) {
	if username == "" || len(authors) == 0 {
		return map[string]data.SubscriptionDTO{}, nil
	}
	return v.Subscriptions.BatchGet(ctx, username, authors)
}

func (v *Viewer) memberOf(ctx context.Context, service data.MembershipDataService, username string, recipeIds []string) (map[string]data.MembershipDTO, error) {
	if username == "" || len(recipeIds) == 0 {
		return map[string]data.MembershipDTO{}, nil
	}
	return service.BatchGet(ctx, username, recipeIds)
}

func (v *Viewer) lookupProfiles(ctx context.Context, usernames []string) (map[string]data.UserDTO, error) {
	if len(usernames) == 0 {
		return map[string]data.UserDTO{}, nil
	}
	found, err := v.Profiles.BatchGet(ctx, usernames)
	if err != nil {
		return nil, err
	}
	for _, username := range usernames {
		if _, ok := found[username]; !ok {
			found[username] = data.UserDTO{Username: username}
		}
	}
	return found, nil
}

// Users renders profiles as seen by username.
func (v *Viewer) Users(ctx context.Context, username string, users []data.UserDTO) ([]User, error) {
	authors := make([]string, 0, len(users))
	for _, user := range users {
		authors = append(authors, user.Username)
	}
	subscriptions, err := v.subscribedTo(ctx, username, authors)
	if err != nil {
		return nil, err
	}
	rendered := make([]User, 0, len(users))
	for _, user := range users {
		_, subscribed := subscriptions[user.Username]
		rendered = append(rendered, NewUser(user, subscribed))
	}
	return rendered, nil
}

func (v *Viewer) User(ctx context.Context, username string, user data.UserDTO) (User, error) {
	rendered, err := v.Users(ctx, username, []data.UserDTO{user})
	if err != nil {
		return User{}, err
	}
	return rendered[0], nil
}

// Recipes renders aggregates as seen by username.
func (v *Viewer) Recipes(ctx context.Context, username string, aggregates []data.RecipeAggregate) ([]Recipe, error) {
	recipeIds := make([]string, 0, len(aggregates))
	authorSet := map[string]bool{}
	for _, aggregate := range aggregates {
		recipeIds = append(recipeIds, aggregate.Recipe.Id)
		authorSet[aggregate.Recipe.Author] = true
	}
	authors := maps.Keys(authorSet)
	profiles, err := v.lookupProfiles(ctx, authors)
	if err != nil {
		return nil, err
	}
	subscriptions, err := v.subscribedTo(ctx, username, authors)
	if err != nil {
		return nil, err
	}
	favorites, err := v.memberOf(ctx, v.Favorites, username, recipeIds)
	if err != nil {
		return nil, err
	}
	carts, err := v.memberOf(ctx, v.Carts, username, recipeIds)
	if err != nil {
		return nil, err
	}
	rendered := make([]Recipe, 0, len(aggregates))
	for _, aggregate := range aggregates {
		recipe := aggregate.Recipe
		_, subscribed := subscriptions[recipe.Author]
		_, favorited := favorites[recipe.Id]
		_, inCart := carts[recipe.Id]
		tags := make([]Tag, 0, len(aggregate.Tags))
		for _, tag := range aggregate.Tags {
			tags = append(tags, Tag{Id: tag.TagId, Name: tag.Name, Color: tag.Color, Slug: tag.Slug})
		}
		ingredients := make([]RecipeIngredient, 0, len(aggregate.Ingredients))
		for _, link := range aggregate.Ingredients {
			ingredients = append(ingredients, RecipeIngredient{
				Id:              link.IngredientId,
				Name:            link.Name,
				MeasurementUnit: link.MeasurementUnit,
				Amount:          link.Amount,
			})
		}
		rendered = append(rendered, Recipe{
			Id:               recipe.Id,
			Tags:             tags,
			Author:           NewUser(profiles[recipe.Author], subscribed),
			Ingredients:      ingredients,
			IsFavorited:      favorited,
			IsInShoppingCart: inCart,
			Name:             recipe.Name,
			Image:            recipe.Image,
			Text:             recipe.Text,
			CookingTime:      recipe.CookingTime,
			PubDate:          recipe.PubDate,
		})
	}
	return rendered, nil
}

func (v *Viewer) Recipe(ctx context.Context, username string, aggregate data.RecipeAggregate) (Recipe, error) {
	rendered, err := v.Recipes(ctx, username, []data.RecipeAggregate{aggregate})
	if err != nil {
		return Recipe{}, err
	}
	return rendered[0], nil
}
