package users

import (
	"context"
	"errors"

	"github.com/aws/aws-lambda-go/events"
	"philcali.me/foodgram/internal/data"
	"philcali.me/foodgram/internal/exceptions"
	"philcali.me/foodgram/internal/routes"
	"philcali.me/foodgram/internal/routes/util"
	"philcali.me/foodgram/internal/routes/views"
)

type UserService struct {
	users  data.UserService
	viewer *views.Viewer
}

func NewRoute(users data.UserService, viewer *views.Viewer) routes.Service {
	return &UserService{
		users:  users,
		viewer: viewer,
	}
}

func (us *UserService) GetRoutes() map[string]routes.Route {
	return map[string]routes.Route{
		"GET:/users":         us.ListUsers,
		"GET:/users/me":      util.AuthorizedRoute(us.GetCurrentUser),
		"GET:/users/:userId": us.GetUser,
	}
}

func (us *UserService) ListUsers(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	params, err := util.PageParams(event)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	page, err := us.users.List(ctx, params)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	results := data.QueryResults[views.User]{NextToken: page.NextToken}
	results.Items, err = us.viewer.Users(ctx, util.Username(ctx), page.Items)
	return util.SerializeResponseOK(util.Passthrough[data.QueryResults[views.User]], results, err)
}

func (us *UserService) GetUser(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	user, err := us.users.Get(ctx, util.RequestParam(ctx, "userId"))
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	rendered, err := us.viewer.User(ctx, util.Username(ctx), user)
	return util.SerializeResponseOK(util.Passthrough[views.User], rendered, err)
}

// GetCurrentUser falls back to the authorizer claims when the profile has
// not been stored yet.
func (us *UserService) GetCurrentUser(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	identity, _ := util.Identity(ctx)
	user, err := us.users.Get(ctx, identity.Username)
	var notFound *exceptions.NotFoundError
	if errors.As(err, &notFound) {
		user = data.UserDTO{
			Username:  identity.Username,
			Email:     identity.Email,
			FirstName: identity.FirstName,
			LastName:  identity.LastName,
		}
		err = nil
	}
	return util.SerializeResponseOK(func(user data.UserDTO) views.User {
		return views.NewUser(user, false)
	}, user, err)
}
