package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
	"philcali.me/foodgram/internal/config"
	"philcali.me/foodgram/internal/data"
	"philcali.me/foodgram/internal/dynamodb/client"
	"philcali.me/foodgram/internal/dynamodb/token"
	"philcali.me/foodgram/internal/dynamodb/users"
	"philcali.me/foodgram/internal/logging"
)

var errInvalidToken = errors.New("invalid token")

type Authorizer struct {
	PoolURL string
	Client  *http.Client
	Users   data.UserService
	// Breaker stops calling the provider while it is failing. Rejected
	// tokens do not count as failures.
	Breaker *gobreaker.CircuitBreaker[map[string]interface{}]
}

func NewAuthorizer(poolURL string, users data.UserService) *Authorizer {
	return &Authorizer{
		PoolURL: strings.TrimSuffix(poolURL, "/"),
		Client:  &http.Client{Timeout: 5 * time.Second},
		Users:   users,
		Breaker: gobreaker.NewCircuitBreaker[map[string]interface{}](gobreaker.Settings{
			Name:    "userInfo",
			Timeout: 30 * time.Second,
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, errInvalidToken)
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker changed state")
			},
		}),
	}
}

func claimOf(claims map[string]interface{}, names ...string) string {
	for _, name := range names {
		if value, ok := claims[name].(string); ok && value != "" {
			return value
		}
	}
	return ""
}

// UserInfo resolves a bearer token into the claims the API routes read.
func (a *Authorizer) UserInfo(ctx context.Context, apiToken string) (map[string]interface{}, error) {
	return a.Breaker.Execute(func() (map[string]interface{}, error) {
		return a.fetchUserInfo(ctx, apiToken)
	})
}

func (a *Authorizer) fetchUserInfo(ctx context.Context, apiToken string) (map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.PoolURL+"/oauth2/userInfo", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Add("Authorization", apiToken)
	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to invoke request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %d", errInvalidToken, req.URL.String(), resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}
	username := claimOf(raw, "username", "cognito:username", "sub")
	if username == "" {
		return nil, fmt.Errorf("%w: no username claim", errInvalidToken)
	}
	return map[string]interface{}{
		"username":    username,
		"email":       claimOf(raw, "email"),
		"given_name":  claimOf(raw, "given_name"),
		"family_name": claimOf(raw, "family_name"),
		"is_staff":    claimOf(raw, "is_staff", "custom:is_staff"),
	}, nil
}

// saveProfile keeps the stored profile in step with the provider. A failure
// is logged and does not deny the request.
func (a *Authorizer) saveProfile(ctx context.Context, claims map[string]interface{}) {
	input := data.UserInputDTO{Username: claims["username"].(string)}
	for field, target := range map[string]**string{
		"email":       &input.Email,
		"given_name":  &input.FirstName,
		"family_name": &input.LastName,
	} {
		if value := claims[field].(string); value != "" {
			*target = &value
		}
	}
	if _, err := a.Users.Save(ctx, input); err != nil {
		log.Warn().Err(err).Str("username", input.Username).Msg("Failed to save user profile")
	}
}

// HandleRequest lets requests without credentials through anonymously and
// denies requests carrying a token the provider rejects.
func (a *Authorizer) HandleRequest(ctx context.Context, event events.APIGatewayV2CustomAuthorizerV2Request) (events.APIGatewayV2CustomAuthorizerSimpleResponse, error) {
	apiToken, ok := event.Headers["authorization"]
	if !ok || apiToken == "" {
		return events.APIGatewayV2CustomAuthorizerSimpleResponse{
			IsAuthorized: true,
			Context:      map[string]interface{}{},
		}, nil
	}
	claims, err := a.UserInfo(ctx, apiToken)
	if err != nil {
		log.Info().Err(err).Msg("Denying request")
		return events.APIGatewayV2CustomAuthorizerSimpleResponse{IsAuthorized: false}, nil
	}
	a.saveProfile(ctx, claims)
	return events.APIGatewayV2CustomAuthorizerSimpleResponse{
		IsAuthorized: true,
		Context: map[string]interface{}{
			"claims": claims,
		},
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	awsCfg, err := client.LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	userData := users.NewUserService(cfg.Table.Name, client.NewDynamoDB(awsCfg, cfg), token.NewGCM())
	lambda.Start(NewAuthorizer(cfg.Auth.PoolURL, userData).HandleRequest)
}
