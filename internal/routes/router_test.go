package routes_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"philcali.me/foodgram/internal/config"
	"philcali.me/foodgram/internal/data"
	"philcali.me/foodgram/internal/routes"
	"philcali.me/foodgram/internal/routes/ingredients"
	"philcali.me/foodgram/internal/routes/recipes"
	shoppingRoutes "philcali.me/foodgram/internal/routes/shopping"
	"philcali.me/foodgram/internal/routes/subscriptions"
	"philcali.me/foodgram/internal/routes/tags"
	"philcali.me/foodgram/internal/routes/users"
	"philcali.me/foodgram/internal/routes/views"
	"philcali.me/foodgram/internal/shopping"
	"philcali.me/foodgram/internal/test/memory"
	"philcali.me/foodgram/internal/validation"
)

type LocalServer struct {
	Router    *routes.Router
	Catalog   *memory.Catalog
	Users     *memory.Users
	Recipes   *memory.Recipes
	Favorites *memory.Repository[data.MembershipDTO, data.MembershipInputDTO]
	Carts     *memory.Repository[data.MembershipDTO, data.MembershipInputDTO]
	Username  string
	IsStaff   bool
}

func NewLocalServer(t *testing.T) *LocalServer {
	catalog := memory.NewCatalog()
	catalog.Tags["1"] = data.TagDTO{SK: "1", Name: "Breakfast", Color: "#E26C2D", Slug: "breakfast"}
	catalog.Tags["2"] = data.TagDTO{SK: "2", Name: "Dinner", Color: "#49B64E", Slug: "dinner"}
	catalog.Ingredients["10"] = data.IngredientDTO{SK: "10", Name: "flour", MeasurementUnit: "g"}
	catalog.Ingredients["11"] = data.IngredientDTO{SK: "11", Name: "eggs", MeasurementUnit: "pcs"}
	catalog.Ingredients["12"] = data.IngredientDTO{SK: "12", Name: "Flour tortilla", MeasurementUnit: "pcs"}

	people := memory.NewUsers()
	for _, username := range []string{"alice", "bob"} {
		email := username + "@example.com"
		_, err := people.Save(context.Background(), data.UserInputDTO{Username: username, Email: &email})
		require.NoError(t, err)
	}
	recipeData := memory.NewRecipes()
	favorites := memory.NewMemberships("Favorite")
	carts := memory.NewMemberships("Cart")
	subscriptionData := memory.NewSubscriptions()
	cfg := config.Defaults()

	viewer := views.NewViewer(people, favorites, carts, subscriptionData)
	validator := validation.NewRecipeValidator(catalog, cfg.Recipes)
	router := routes.NewRouter(
		recipes.NewRoute(recipeData, validator, viewer),
		shoppingRoutes.NewRoute(recipeData, carts, shopping.NewShoppingListService(carts, recipeData), cfg.Shopping.FileName),
		ingredients.NewRoute(catalog),
		tags.NewRoute(catalog),
		users.NewRoute(people, viewer),
		subscriptions.NewRoute(subscriptionData, people, recipeData),
	)
	return &LocalServer{
		Router:    router,
		Catalog:   catalog,
		Users:     people,
		Recipes:   recipeData,
		Favorites: favorites,
		Carts:     carts,
		Username:  "alice",
	}
}

func (ls *LocalServer) UpdateIdentity(username string) {
	ls.Username = username
}

func (ls *LocalServer) Request(t *testing.T, method string, path string, body string, out any) events.APIGatewayV2HTTPResponse {
	parsed, err := url.Parse(path)
	require.NoError(t, err)
	params := map[string]string{}
	for key, values := range parsed.Query() {
		params[key] = strings.Join(values, ",")
	}
	request := events.APIGatewayV2HTTPRequest{
		RawPath:               parsed.Path,
		QueryStringParameters: params,
		Body:                  body,
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method: method,
				Path:   parsed.Path,
			},
			Authorizer: &events.APIGatewayV2HTTPRequestContextAuthorizerDescription{
				Lambda: map[string]interface{}{},
			},
		},
	}
	if ls.Username != "" {
		request.RequestContext.Authorizer.Lambda["claims"] = map[string]interface{}{
			"username": ls.Username,
			"email":    ls.Username + "@example.com",
			"is_staff": fmt.Sprintf("%t", ls.IsStaff),
		}
	}
	response := ls.Router.Invoke(request, context.TODO())
	if out != nil {
		require.NoError(t, json.Unmarshal([]byte(response.Body), out), "payload for %s %s: %s", method, path, response.Body)
	}
	return response
}

func (ls *LocalServer) Get(t *testing.T, path string, out any) events.APIGatewayV2HTTPResponse {
	return ls.Request(t, "GET", path, "", out)
}

func (ls *LocalServer) Post(t *testing.T, path string, body string, out any) events.APIGatewayV2HTTPResponse {
	return ls.Request(t, "POST", path, body, out)
}

func (ls *LocalServer) Patch(t *testing.T, path string, body string, out any) events.APIGatewayV2HTTPResponse {
	return ls.Request(t, "PATCH", path, body, out)
}

func (ls *LocalServer) Delete(t *testing.T, path string) events.APIGatewayV2HTTPResponse {
	return ls.Request(t, "DELETE", path, "", nil)
}

type errorResponse struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
	Id      string `json:"id"`
}

func pancakes(name string) string {
	return `{"name": "` + name + `", "text": "Mix and fry.", "image": "data:image/png;base64,AAAA",
		"cooking_time": 15, "tags": [1], "ingredients": [{"id": 10, "amount": 200}, {"id": 11, "amount": 2}]}`
}

func TestCors(t *testing.T) {
	server := NewLocalServer(t)
	server.UpdateIdentity("")
	resp := server.Request(t, "OPTIONS", "/recipes", "", nil)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, resp.Headers["access-control-allow-methods"], "PATCH")
}

func TestUnknownRoute(t *testing.T) {
	server := NewLocalServer(t)
	resp := server.Get(t, "/nowhere", nil)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestRecipeLifecycle(t *testing.T) {
	server := NewLocalServer(t)

	var created views.Recipe
	resp := server.Post(t, "/recipes", pancakes("Pancakes"), &created)
	require.Equal(t, 201, resp.StatusCode, resp.Body)
	assert.Equal(t, "Pancakes", created.Name)
	assert.Equal(t, "alice", created.Author.Username)
	assert.Equal(t, "alice@example.com", created.Author.Email)
	assert.Len(t, created.Ingredients, 2)
	assert.Equal(t, []views.Tag{{Id: "1", Name: "Breakfast", Color: "#E26C2D", Slug: "breakfast"}}, created.Tags)
	assert.False(t, created.IsFavorited)

	t.Run("GetAnonymous", func(t *testing.T) {
		server.UpdateIdentity("")
		defer server.UpdateIdentity("alice")
		var fetched views.Recipe
		resp := server.Get(t, "/recipes/"+created.Id, &fetched)
		require.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, created.Id, fetched.Id)
		assert.ElementsMatch(t, created.Ingredients, fetched.Ingredients)
	})

	t.Run("CreateAnonymous", func(t *testing.T) {
		server.UpdateIdentity("")
		defer server.UpdateIdentity("alice")
		resp := server.Post(t, "/recipes", pancakes("Waffles"), nil)
		assert.Equal(t, 401, resp.StatusCode)
	})

	t.Run("DuplicateName", func(t *testing.T) {
		resp := server.Post(t, "/recipes", pancakes("Pancakes"), nil)
		assert.Equal(t, 409, resp.StatusCode)
	})

	t.Run("NameOnlyPatch", func(t *testing.T) {
		var updated views.Recipe
		resp := server.Patch(t, "/recipes/"+created.Id, `{"name": "Crepes"}`, &updated)
		require.Equal(t, 200, resp.StatusCode, resp.Body)
		assert.Equal(t, "Crepes", updated.Name)
		assert.ElementsMatch(t, created.Ingredients, updated.Ingredients)
		assert.Equal(t, created.Tags, updated.Tags)
	})

	t.Run("PatchByStranger", func(t *testing.T) {
		server.UpdateIdentity("bob")
		defer server.UpdateIdentity("alice")
		resp := server.Patch(t, "/recipes/"+created.Id, `{"name": "Mine"}`, nil)
		assert.Equal(t, 403, resp.StatusCode)
	})

	t.Run("PatchByStaff", func(t *testing.T) {
		server.UpdateIdentity("bob")
		server.IsStaff = true
		defer func() {
			server.UpdateIdentity("alice")
			server.IsStaff = false
		}()
		var updated views.Recipe
		resp := server.Patch(t, "/recipes/"+created.Id, `{"cooking_time": 20}`, &updated)
		require.Equal(t, 200, resp.StatusCode, resp.Body)
		assert.Equal(t, 20, updated.CookingTime)
		assert.Equal(t, "alice", updated.Author.Username)
	})

	t.Run("Delete", func(t *testing.T) {
		resp := server.Delete(t, "/recipes/"+created.Id)
		assert.Equal(t, 204, resp.StatusCode)
		resp = server.Get(t, "/recipes/"+created.Id, nil)
		assert.Equal(t, 404, resp.StatusCode)
	})
}

func TestRecipeValidationErrors(t *testing.T) {
	server := NewLocalServer(t)
	tests := []struct {
		name string
		body string
		kind string
		id   string
	}{
		{"CookingTimeZero", strings.Replace(pancakes("A"), `"cooking_time": 15`, `"cooking_time": 0`, 1), "InvalidCookingTime", ""},
		{"UnknownTag", strings.Replace(pancakes("B"), `"tags": [1]`, `"tags": [1, 42]`, 1), "UnknownTag", "42"},
		{"DuplicateIngredient", strings.Replace(pancakes("C"), `{"id": 11, "amount": 2}`, `{"id": 10, "amount": 2}`, 1), "DuplicateIngredient", "10"},
		{"TagsNotList", strings.Replace(pancakes("D"), `"tags": [1]`, `"tags": 1`, 1), "InvalidShape", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body errorResponse
			resp := server.Post(t, "/recipes", tt.body, &body)
			assert.Equal(t, 400, resp.StatusCode)
			assert.Equal(t, tt.kind, body.Kind)
			assert.Equal(t, tt.id, body.Id)
		})
	}
	assert.Empty(t, server.Recipes.Items)
}

func TestListRecipes(t *testing.T) {
	server := NewLocalServer(t)
	var breakfast, dinner, bobs views.Recipe
	require.Equal(t, 201, server.Post(t, "/recipes", pancakes("Pancakes"), &breakfast).StatusCode)
	require.Equal(t, 201, server.Post(t, "/recipes", strings.Replace(pancakes("Stew"), `"tags": [1]`, `"tags": [2]`, 1), &dinner).StatusCode)
	server.UpdateIdentity("bob")
	require.Equal(t, 201, server.Post(t, "/recipes", pancakes("Omelette"), &bobs).StatusCode)
	require.Equal(t, 201, server.Post(t, "/recipes/"+breakfast.Id+"/favorite", "", nil).StatusCode)

	names := func(results data.QueryResults[views.Recipe]) []string {
		found := []string{}
		for _, item := range results.Items {
			found = append(found, item.Name)
		}
		return found
	}

	t.Run("NewestFirst", func(t *testing.T) {
		var results data.QueryResults[views.Recipe]
		require.Equal(t, 200, server.Get(t, "/recipes", &results).StatusCode)
		assert.Equal(t, []string{"Omelette", "Stew", "Pancakes"}, names(results))
	})

	t.Run("Paging", func(t *testing.T) {
		var first, second data.QueryResults[views.Recipe]
		server.Get(t, "/recipes?limit=2", &first)
		require.NotNil(t, first.NextToken)
		server.Get(t, "/recipes?limit=2&nextToken="+url.QueryEscape(*first.NextToken), &second)
		assert.Equal(t, []string{"Omelette", "Stew"}, names(first))
		assert.Equal(t, []string{"Pancakes"}, names(second))
		assert.Nil(t, second.NextToken)
	})

	t.Run("Tags", func(t *testing.T) {
		var results data.QueryResults[views.Recipe]
		server.Get(t, "/recipes?tags=dinner", &results)
		assert.Equal(t, []string{"Stew"}, names(results))
		server.Get(t, "/recipes?tags=dinner&tags=breakfast", &results)
		assert.Len(t, results.Items, 3)
	})

	t.Run("Author", func(t *testing.T) {
		var results data.QueryResults[views.Recipe]
		server.Get(t, "/recipes?author=alice", &results)
		assert.Equal(t, []string{"Stew", "Pancakes"}, names(results))
	})

	t.Run("Favorited", func(t *testing.T) {
		var results data.QueryResults[views.Recipe]
		server.Get(t, "/recipes?is_favorited=1", &results)
		require.Equal(t, []string{"Pancakes"}, names(results))
		assert.True(t, results.Items[0].IsFavorited)
		server.Get(t, "/recipes?is_in_shopping_cart=1", &results)
		assert.Empty(t, results.Items)
	})

	t.Run("FavoritedIgnoredWhenAnonymous", func(t *testing.T) {
		server.UpdateIdentity("")
		defer server.UpdateIdentity("bob")
		var results data.QueryResults[views.Recipe]
		server.Get(t, "/recipes?is_favorited=1", &results)
		assert.Len(t, results.Items, 3)
		for _, item := range results.Items {
			assert.False(t, item.IsFavorited)
		}
	})
}

func TestFavoriteToggle(t *testing.T) {
	server := NewLocalServer(t)
	var created views.Recipe
	require.Equal(t, 201, server.Post(t, "/recipes", pancakes("Pancakes"), &created).StatusCode)
	path := "/recipes/" + created.Id + "/favorite"

	var lite views.RecipeLite
	resp := server.Post(t, path, "", &lite)
	require.Equal(t, 201, resp.StatusCode)
	assert.Equal(t, views.RecipeLite{Id: created.Id, Name: "Pancakes", Image: created.Image, CookingTime: 15}, lite)

	resp = server.Post(t, path, "", nil)
	assert.Equal(t, 409, resp.StatusCode)
	favorites, err := server.Favorites.List(context.Background(), "alice", data.QueryParams{})
	require.NoError(t, err)
	assert.Len(t, favorites.Items, 1)

	var fetched views.Recipe
	server.Get(t, "/recipes/"+created.Id, &fetched)
	assert.True(t, fetched.IsFavorited)

	assert.Equal(t, 204, server.Delete(t, path).StatusCode)
	assert.Equal(t, 404, server.Delete(t, path).StatusCode)
	assert.Equal(t, 404, server.Post(t, "/recipes/missing/favorite", "", nil).StatusCode)
}

func TestShoppingCart(t *testing.T) {
	server := NewLocalServer(t)
	var first, second views.Recipe
	require.Equal(t, 201, server.Post(t, "/recipes", pancakes("Pancakes"), &first).StatusCode)
	require.Equal(t, 201, server.Post(t, "/recipes", strings.Replace(pancakes("Bread"), `"amount": 2}`, `"amount": 3}`, 1), &second).StatusCode)
	for _, recipe := range []views.Recipe{first, second} {
		require.Equal(t, 201, server.Post(t, "/recipes/"+recipe.Id+"/shopping_cart", "", nil).StatusCode)
	}

	resp := server.Get(t, "/recipes/download_shopping_cart", nil)
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "Shopping list for alice\n\neggs (pcs) - 5\nflour (g) - 400\n", resp.Body)
	assert.Equal(t, `attachment; filename="shopping_list.txt"`, resp.Headers["Content-Disposition"])

	server.UpdateIdentity("")
	assert.Equal(t, 401, server.Get(t, "/recipes/download_shopping_cart", nil).StatusCode)
	server.UpdateIdentity("alice")

	assert.Equal(t, 204, server.Delete(t, "/recipes/"+first.Id+"/shopping_cart").StatusCode)
	resp = server.Get(t, "/recipes/download_shopping_cart", nil)
	assert.Equal(t, "Shopping list for alice\n\neggs (pcs) - 3\nflour (g) - 200\n", resp.Body)
}

func TestCatalog(t *testing.T) {
	server := NewLocalServer(t)
	server.UpdateIdentity("")

	var tagList []views.Tag
	require.Equal(t, 200, server.Get(t, "/tags", &tagList).StatusCode)
	assert.Len(t, tagList, 2)

	var tag views.Tag
	require.Equal(t, 200, server.Get(t, "/tags/2", &tag).StatusCode)
	assert.Equal(t, "dinner", tag.Slug)
	assert.Equal(t, 404, server.Get(t, "/tags/99", nil).StatusCode)

	var matches data.QueryResults[views.Ingredient]
	require.Equal(t, 200, server.Get(t, "/ingredients?name=FLO", &matches).StatusCode)
	found := []string{}
	for _, item := range matches.Items {
		found = append(found, item.Name)
	}
	assert.ElementsMatch(t, []string{"flour", "Flour tortilla"}, found)

	var ingredient views.Ingredient
	require.Equal(t, 200, server.Get(t, "/ingredients/11", &ingredient).StatusCode)
	assert.Equal(t, views.Ingredient{Id: "11", Name: "eggs", MeasurementUnit: "pcs"}, ingredient)
}

func TestUsersAndSubscriptions(t *testing.T) {
	server := NewLocalServer(t)
	server.UpdateIdentity("bob")
	for _, name := range []string{"Soup", "Salad", "Toast"} {
		require.Equal(t, 201, server.Post(t, "/recipes", pancakes(name), nil).StatusCode)
	}
	server.UpdateIdentity("alice")

	var me views.User
	require.Equal(t, 200, server.Get(t, "/users/me", &me).StatusCode)
	assert.Equal(t, "alice", me.Username)

	assert.Equal(t, 400, server.Post(t, "/users/alice/subscribe", "", nil).StatusCode)
	assert.Equal(t, 404, server.Post(t, "/users/nobody/subscribe", "", nil).StatusCode)

	var subscription views.Subscription
	resp := server.Post(t, "/users/bob/subscribe?recipes_limit=2", "", &subscription)
	require.Equal(t, 201, resp.StatusCode, resp.Body)
	assert.True(t, subscription.IsSubscribed)
	assert.Len(t, subscription.Recipes, 2)
	assert.Equal(t, 3, subscription.RecipesCount)
	assert.Equal(t, 409, server.Post(t, "/users/bob/subscribe", "", nil).StatusCode)

	var bob views.User
	server.Get(t, "/users/bob", &bob)
	assert.True(t, bob.IsSubscribed)

	var subscribed data.QueryResults[views.Subscription]
	require.Equal(t, 200, server.Get(t, "/users/subscriptions?recipes_limit=1", &subscribed).StatusCode)
	require.Len(t, subscribed.Items, 1)
	assert.Equal(t, "bob", subscribed.Items[0].Username)
	require.Len(t, subscribed.Items[0].Recipes, 1)
	assert.Equal(t, "Toast", subscribed.Items[0].Recipes[0].Name)
	assert.Equal(t, 3, subscribed.Items[0].RecipesCount)

	var everyone data.QueryResults[views.User]
	server.Get(t, "/users", &everyone)
	assert.Len(t, everyone.Items, 2)

	assert.Equal(t, 204, server.Delete(t, "/users/bob/subscribe").StatusCode)
	assert.Equal(t, 404, server.Delete(t, "/users/bob/subscribe").StatusCode)
	server.UpdateIdentity("")
	assert.Equal(t, 401, server.Get(t, "/users/me", nil).StatusCode)
}
