package main

import (
	"context"

	lambdaEvents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"
	"philcali.me/foodgram/internal/config"
	"philcali.me/foodgram/internal/data"
	"philcali.me/foodgram/internal/dynamodb/client"
	"philcali.me/foodgram/internal/dynamodb/favorites"
	"philcali.me/foodgram/internal/dynamodb/shopping"
	"philcali.me/foodgram/internal/dynamodb/token"
	"philcali.me/foodgram/internal/events"
	"philcali.me/foodgram/internal/logging"
	"philcali.me/foodgram/internal/sns/services"
)

type App struct {
	Handlers []events.EventFilter
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	awsCfg, err := client.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	ddb := client.NewDynamoDB(awsCfg, cfg)
	marshaler := token.NewGCM()
	table := cfg.Table
	memberships := map[string]data.MembershipDataService{
		favorites.Name: favorites.NewFavoriteService(table.Name, table.FirstIndex, ddb, marshaler),
		shopping.Name:  shopping.NewCartService(table.Name, table.FirstIndex, ddb, marshaler),
	}
	handlers := []events.EventFilter{
		events.DefaultDeleteMembershipsHandler(memberships),
	}
	if cfg.Notifications.TopicArn != "" {
		publisher := services.NewNotificationService(client.NewSNS(awsCfg), cfg.Notifications.TopicArn)
		handlers = append(handlers, events.DefaultPublishRecipeHandler(publisher))
	} else {
		log.Warn().Msg("No notification topic configured, new recipes will not be published")
	}
	return &App{
		Handlers: handlers,
	}, nil
}

func (app *App) HandleRequest(ctx context.Context, event lambdaEvents.DynamoDBEvent) error {
	failures := events.Dispatch(ctx, app.Handlers, event.Records)
	log.Info().Int("records", len(event.Records)).Int("failures", failures).Msg("Processed stream batch")
	return nil
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
