package subscriptions

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
)

type SubscriptionService struct {
	data    data.SubscriptionDataService
	users   data.UserService
	recipes data.RecipeRepository
}

func NewRoute(data data.SubscriptionDataService, users data.UserService, recipes data.RecipeRepository) routes.Service {
	return &SubscriptionService{
		data:    data,
		users:   users,
		recipes: recipes,
	}
}

func (s *SubscriptionService) GetRoutes() map[string]routes.Route {
	return map[string]routes.Route{
		"GET:/users/subscriptions":       util.AuthorizedRoute(s.ListSubscriptions),
		"POST:/users/:userId/subscribe":   util.AuthorizedRoute(s.Subscribe),
		"DELETE:/users/:userId/subscribe": util.AuthorizedRoute(s.Unsubscribe),
	}
}

// render previews an author's newest recipes, capped by recipes_limit.
func (s *SubscriptionService) render(ctx context.Context, event events.APIGatewayV2HTTPRequest, author data.UserDTO) (views.Subscription, error) {
	subscription := views.Subscription{
		User:    views.NewUser(author, true),
		Recipes: []views.RecipeLite{},
	}
	limit, limited, err := util.QueryInt(event, "recipes_limit")
	if err != nil {
		return subscription, err
	}
	if !limited || limit > 0 {
		page, err := s.recipes.List(ctx, data.RecipeFilter{Author: &author.Username}, data.QueryParams{Limit: limit})
		if err != nil {
			return subscription, err
		}
		for _, aggregate := range page.Items {
			subscription.Recipes = append(subscription.Recipes, views.NewRecipeLiteFromAggregate(aggregate))
		}
	}
	subscription.RecipesCount, err = s.recipes.CountByAuthor(ctx, author.Username)
	return subscription, err
}

func (s *SubscriptionService) ListSubscriptions(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	params, err := util.PageParams(event)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	page, err := s.data.List(ctx, util.Username(ctx), params)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	authors := make([]string, 0, len(page.Items))
	for _, item := range page.Items {
		authors = append(authors, item.Author)
	}
	profiles := map[string]data.UserDTO{}
	if len(authors) > 0 {
		if profiles, err = s.users.BatchGet(ctx, authors); err != nil {
			return events.APIGatewayV2HTTPResponse{}, err
		}
	}
	results := data.QueryResults[views.Subscription]{
		Items:     make([]views.Subscription, 0, len(authors)),
		NextToken: page.NextToken,
	}
	for _, author := range authors {
		profile, ok := profiles[author]
		if !ok {
			profile = data.UserDTO{Username: author}
		}
		subscription, err := s.render(ctx, event, profile)
		if err != nil {
			return events.APIGatewayV2HTTPResponse{}, err
		}
		results.Items = append(results.Items, subscription)
	}
	return util.SerializeResponseOK(util.Passthrough[data.QueryResults[views.Subscription]], results, nil)
}

func (s *SubscriptionService) Subscribe(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	subscriber := util.Username(ctx)
	author := util.RequestParam(ctx, "userId")
	if author == subscriber {
		return events.APIGatewayV2HTTPResponse{}, exceptions.InvalidInput("Cannot subscribe to yourself")
	}
	if _, _, err := util.QueryInt(event, "recipes_limit"); err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	profile, err := s.users.Get(ctx, author)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	_, err = s.data.CreateWithItemId(ctx, subscriber, data.SubscriptionInputDTO{Author: &author}, author)
	var conflict *exceptions.ConflictError
	if errors.As(err, &conflict) {
		return events.APIGatewayV2HTTPResponse{}, exceptions.Conflict("subscription", author)
	}
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	log.Info().Str("subscriber", subscriber).Str("author", author).Msg("Subscribed")
	subscription, err := s.render(ctx, event, profile)
	return util.SerializeResponseCreated(util.Passthrough[views.Subscription], subscription, err)
}

func (s *SubscriptionService) Unsubscribe(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	author := util.RequestParam(ctx, "userId")
	err := s.data.DeleteExisting(ctx, util.Username(ctx), author)
	var notFound *exceptions.NotFoundError
	if errors.As(err, &notFound) {
		return events.APIGatewayV2HTTPResponse{}, exceptions.NotFound("subscription", author)
	}
	return util.SerializeResponseNoContent(err)
}
