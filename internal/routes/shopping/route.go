package shopping

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"philcali.me/foodgram/internal/data"
	"philcali.me/foodgram/internal/routes"
	"philcali.me/foodgram/internal/routes/recipes"
	"philcali.me/foodgram/internal/routes/util"
	"philcali.me/foodgram/internal/shopping"
)

type ShoppingCartService struct {
	recipes  data.RecipeRepository
	carts    data.MembershipDataService
	lists    *shopping.ShoppingListService
	fileName string
}

func NewRoute(recipes data.RecipeRepository, carts data.MembershipDataService, lists *shopping.ShoppingListService, fileName string) routes.Service {
	return &ShoppingCartService{
		recipes:  recipes,
		carts:    carts,
		lists:    lists,
		fileName: fileName,
	}
}

func (ss *ShoppingCartService) GetRoutes() map[string]routes.Route {
	return map[string]routes.Route{
		"GET:/recipes/download_shopping_cart":     util.AuthorizedRoute(ss.DownloadShoppingCart),
		"POST:/recipes/:recipeId/shopping_cart":   util.AuthorizedRoute(ss.AddToCart),
		"DELETE:/recipes/:recipeId/shopping_cart": util.AuthorizedRoute(ss.RemoveFromCart),
	}
}

func (ss *ShoppingCartService) AddToCart(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	return recipes.AddMembership(ctx, ss.recipes, ss.carts, "shopping cart")
}

func (ss *ShoppingCartService) RemoveFromCart(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	return recipes.RemoveMembership(ctx, ss.carts, "shopping cart")
}

func (ss *ShoppingCartService) DownloadShoppingCart(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	text, err := ss.lists.Download(ctx, util.Username(ctx))
	return util.SerializeAttachment(text, ss.fileName, err)
}
