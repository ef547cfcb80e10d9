package recipes

import (
	"context"
	"errors"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"
	"philcali.me/foodgram/internal/data"
	"philcali.me/foodgram/internal/exceptions"
	"philcali.me/foodgram/internal/routes"
	"philcali.me/foodgram/internal/routes/util"
	"philcali.me/foodgram/internal/routes/views"
	"philcali.me/foodgram/internal/validation"
)

type RecipeService struct {
	recipes   data.RecipeRepository
	validator *validation.RecipeValidator
	favorites data.MembershipDataService
	carts     data.MembershipDataService
	viewer    *views.Viewer
}

func NewRoute(recipes data.RecipeRepository, validator *validation.RecipeValidator, viewer *views.Viewer) routes.Service {
	return &RecipeService{
		recipes:   recipes,
		validator: validator,
		favorites: viewer.Favorites,
		carts:     viewer.Carts,
		viewer:    viewer,
	}
}

func (rs *RecipeService) GetRoutes() map[string]routes.Route {
	return map[string]routes.Route{
		"GET:/recipes":                       rs.ListRecipes,
		"GET:/recipes/:recipeId":             rs.GetRecipe,
		"POST:/recipes":                      util.AuthorizedRoute(rs.CreateRecipe),
		"PATCH:/recipes/:recipeId":           util.AuthorizedRoute(rs.UpdateRecipe),
		"PUT:/recipes/:recipeId":             util.AuthorizedRoute(rs.UpdateRecipe),
		"DELETE:/recipes/:recipeId":          util.AuthorizedRoute(rs.DeleteRecipe),
		"POST:/recipes/:recipeId/favorite":   util.AuthorizedRoute(rs.AddFavorite),
		"DELETE:/recipes/:recipeId/favorite": util.AuthorizedRoute(rs.RemoveFavorite),
	}
}

// memberIds lists the recipe ids in one of the caller's collections.
func memberIds(ctx context.Context, service data.MembershipDataService, username string) ([]string, error) {
	memberships, err := data.ListAll(func(params data.QueryParams) (data.QueryResults[data.MembershipDTO], error) {
		return service.List(ctx, username, params)
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(memberships))
	for _, membership := range memberships {
		ids = append(ids, membership.RecipeId)
	}
	return ids, nil
}

func intersect(left []string, right []string) []string {
	keep := make(map[string]bool, len(right))
	for _, id := range right {
		keep[id] = true
	}
	both := []string{}
	for _, id := range left {
		if keep[id] {
			both = append(both, id)
		}
	}
	return both
}

// filterFor builds the listing filter. Collection flags are ignored for
// anonymous callers.
func (rs *RecipeService) filterFor(event events.APIGatewayV2HTTPRequest, ctx context.Context) (data.RecipeFilter, error) {
	filter := data.RecipeFilter{
		Tags: util.QueryValues(event, "tags"),
	}
	if author := util.QueryParam(event, "author"); author != "" {
		filter.Author = &author
	}
	username := util.Username(ctx)
	if username == "" {
		return filter, nil
	}
	if util.QueryFlag(event, "is_favorited") {
		ids, err := memberIds(ctx, rs.favorites, username)
		if err != nil {
			return filter, err
		}
		filter.Ids = ids
	}
	if util.QueryFlag(event, "is_in_shopping_cart") {
		ids, err := memberIds(ctx, rs.carts, username)
		if err != nil {
			return filter, err
		}
		if filter.Ids != nil {
			ids = intersect(filter.Ids, ids)
		}
		filter.Ids = ids
	}
	return filter, nil
}

func (rs *RecipeService) ListRecipes(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	params, err := util.PageParams(event)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	filter, err := rs.filterFor(event, ctx)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	results := data.QueryResults[views.Recipe]{Items: []views.Recipe{}}
	if filter.Ids == nil || len(filter.Ids) > 0 {
		page, err := rs.recipes.List(ctx, filter, params)
		if err != nil {
			return events.APIGatewayV2HTTPResponse{}, err
		}
		results.NextToken = page.NextToken
		if results.Items, err = rs.viewer.Recipes(ctx, util.Username(ctx), page.Items); err != nil {
			return events.APIGatewayV2HTTPResponse{}, err
		}
	}
	return util.SerializeResponseOK(util.Passthrough[data.QueryResults[views.Recipe]], results, nil)
}

func (rs *RecipeService) render(ctx context.Context, aggregate data.RecipeAggregate, err error) (views.Recipe, error) {
	if err != nil {
		return views.Recipe{}, err
	}
	return rs.viewer.Recipe(ctx, util.Username(ctx), aggregate)
}

func (rs *RecipeService) GetRecipe(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	aggregate, err := rs.recipes.Get(ctx, util.RequestParam(ctx, "recipeId"))
	recipe, err := rs.render(ctx, aggregate, err)
	return util.SerializeResponseOK(util.Passthrough[views.Recipe], recipe, err)
}

func (rs *RecipeService) CreateRecipe(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	input, err := rs.validator.Validate(ctx, []byte(event.Body), util.Username(ctx), validation.Create)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	created, err := rs.recipes.Create(ctx, input)
	if err == nil {
		log.Info().Str("recipeId", created.Recipe.Id).Str("author", input.Author).Msg("Created recipe")
	}
	recipe, err := rs.render(ctx, created, err)
	return util.SerializeResponseCreated(util.Passthrough[views.Recipe], recipe, err)
}

// authorize loads the recipe and checks the caller may modify it.
func (rs *RecipeService) authorize(ctx context.Context, recipeId string) (data.RecipeAggregate, error) {
	aggregate, err := rs.recipes.Get(ctx, recipeId)
	if err != nil {
		return aggregate, err
	}
	identity, _ := util.Identity(ctx)
	if aggregate.Recipe.Author != identity.Username && !identity.IsStaff {
		return aggregate, exceptions.Forbidden("recipe", recipeId)
	}
	return aggregate, nil
}

func (rs *RecipeService) UpdateRecipe(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	recipeId := util.RequestParam(ctx, "recipeId")
	existing, err := rs.authorize(ctx, recipeId)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	input, err := rs.validator.Validate(ctx, []byte(event.Body), existing.Recipe.Author, validation.Partial)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	updated, err := rs.recipes.Update(ctx, recipeId, input)
	recipe, err := rs.render(ctx, updated, err)
	return util.SerializeResponseOK(util.Passthrough[views.Recipe], recipe, err)
}

func (rs *RecipeService) DeleteRecipe(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	recipeId := util.RequestParam(ctx, "recipeId")
	if _, err := rs.authorize(ctx, recipeId); err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	return util.SerializeResponseNoContent(rs.recipes.Delete(ctx, recipeId))
}

// AddMembership puts a recipe into one of the caller's collections. An
// existing entry is a 409 and nothing is written.
func AddMembership(ctx context.Context, recipes data.RecipeRepository, service data.MembershipDataService, collection string) (events.APIGatewayV2HTTPResponse, error) {
	recipeId := util.RequestParam(ctx, "recipeId")
	aggregate, err := recipes.Get(ctx, recipeId)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	_, err = service.CreateWithItemId(ctx, util.Username(ctx), data.MembershipInputDTO{RecipeId: &recipeId}, recipeId)
	var conflict *exceptions.ConflictError
	if errors.As(err, &conflict) {
		return events.APIGatewayV2HTTPResponse{}, exceptions.Conflict(collection, recipeId)
	}
	return util.SerializeResponseCreated(views.NewRecipeLiteFromAggregate, aggregate, err)
}

// RemoveMembership takes a recipe out of one of the caller's collections. A
// missing entry is a 404 and nothing is written.
func RemoveMembership(ctx context.Context, service data.MembershipDataService, collection string) (events.APIGatewayV2HTTPResponse, error) {
	recipeId := util.RequestParam(ctx, "recipeId")
	err := service.DeleteExisting(ctx, util.Username(ctx), recipeId)
	var notFound *exceptions.NotFoundError
	if errors.As(err, &notFound) {
		return events.APIGatewayV2HTTPResponse{}, exceptions.NotFound(collection, recipeId)
	}
	return util.SerializeResponseNoContent(err)
}

func (rs *RecipeService) AddFavorite(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	return AddMembership(ctx, rs.recipes, rs.favorites, "favorite")
}

func (rs *RecipeService) RemoveFavorite(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	return RemoveMembership(ctx, rs.favorites, "favorite")
}
