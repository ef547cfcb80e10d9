package ingredients

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"philcali.me/foodgram/internal/data"
	"philcali.me/foodgram/internal/routes"
	"philcali.me/foodgram/internal/routes/util"
	"philcali.me/foodgram/internal/routes/views"
)

type IngredientService struct {
	catalog data.CatalogRepository
}

func NewRoute(catalog data.CatalogRepository) routes.Service {
	return &IngredientService{
		catalog: catalog,
	}
}

func (is *IngredientService) GetRoutes() map[string]routes.Route {
	return map[string]routes.Route{
		"GET:/ingredients":               is.ListIngredients,
		"GET:/ingredients/:ingredientId": is.GetIngredient,
	}
}

// ListIngredients matches the name query as a case-insensitive prefix.
func (is *IngredientService) ListIngredients(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	params, err := util.PageParams(event)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	items, err := is.catalog.ListIngredients(ctx, util.QueryParam(event, "name"), params)
	return util.SerializeResponseOK(util.ConvertQueryResultsPartial(views.NewIngredient), items, err)
}

func (is *IngredientService) GetIngredient(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	item, err := is.catalog.GetIngredient(ctx, util.RequestParam(ctx, "ingredientId"))
	return util.SerializeResponseOK(views.NewIngredient, item, err)
}
