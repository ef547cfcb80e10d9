package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"
	"philcali.me/foodgram/internal/config"
	catalogData "philcali.me/foodgram/internal/dynamodb/catalog"
	"philcali.me/foodgram/internal/dynamodb/client"
	favoriteData "philcali.me/foodgram/internal/dynamodb/favorites"
	recipeData "philcali.me/foodgram/internal/dynamodb/recipes"
	cartData "philcali.me/foodgram/internal/dynamodb/shopping"
	subscriberData "philcali.me/foodgram/internal/dynamodb/subscriptions"
	"philcali.me/foodgram/internal/dynamodb/token"
	userData "philcali.me/foodgram/internal/dynamodb/users"
	"philcali.me/foodgram/internal/logging"
	"philcali.me/foodgram/internal/routes"
	"philcali.me/foodgram/internal/routes/ingredients"
	"philcali.me/foodgram/internal/routes/recipes"
	shoppingRoutes "philcali.me/foodgram/internal/routes/shopping"
	"philcali.me/foodgram/internal/routes/subscriptions"
	"philcali.me/foodgram/internal/routes/tags"
	"philcali.me/foodgram/internal/routes/users"
	"philcali.me/foodgram/internal/routes/views"
	"philcali.me/foodgram/internal/shopping"
	"philcali.me/foodgram/internal/validation"
)

type App struct {
	Router routes.Router
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	awsCfg, err := client.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	ddb := client.NewDynamoDB(awsCfg, cfg)
	marshaler := token.NewGCM()
	table := cfg.Table

	catalog := catalogData.NewCatalogService(table.Name, table.FirstIndex, ddb, marshaler)
	recipeService := recipeData.NewRecipeService(table.Name, table.FirstIndex, table.SecondIndex, ddb, marshaler)
	people := userData.NewUserService(table.Name, ddb, marshaler)
	favorites := favoriteData.NewFavoriteService(table.Name, table.FirstIndex, ddb, marshaler)
	carts := cartData.NewCartService(table.Name, table.FirstIndex, ddb, marshaler)
	subscriptionService := subscriberData.NewSubscriptionDynamoDBService(table.Name, table.FirstIndex, ddb, marshaler)

	viewer := views.NewViewer(people, favorites, carts, subscriptionService)
	router := routes.NewRouter(
		recipes.NewRoute(recipeService, validation.NewRecipeValidator(catalog, cfg.Recipes), viewer),
		shoppingRoutes.NewRoute(recipeService, carts, shopping.NewShoppingListService(carts, recipeService), cfg.Shopping.FileName),
		ingredients.NewRoute(catalog),
		tags.NewRoute(catalog),
		users.NewRoute(people, viewer),
		subscriptions.NewRoute(subscriptionService, people, recipeService),
	)
	return &App{
		Router: *router,
	}, nil
}

func (app *App) HandleRequest(ctx context.Context, request events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	return app.Router.Invoke(request, ctx), nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	app, err := NewApp(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create the application")
	}
	lambda.Start(app.HandleRequest)
}
