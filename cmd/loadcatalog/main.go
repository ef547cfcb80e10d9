package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
	"philcali.me/foodgram/internal/config"
	"philcali.me/foodgram/internal/dynamodb/catalog"
	"philcali.me/foodgram/internal/dynamodb/client"
	"philcali.me/foodgram/internal/dynamodb/token"
	"philcali.me/foodgram/internal/loader"
	"philcali.me/foodgram/internal/logging"
)

func loadFile(path string, load func(context.Context, *os.File) (loader.Summary, error)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	summary, err := load(context.Background(), f)
	log.Info().Str("file", path).Int("loaded", summary.Loaded).Int("skipped", summary.Skipped).Msg("Loaded catalog file")
	return err
}

func main() {
	ingredients := flag.StringP("ingredients", "i", "ingredients.json", "JSON list of {name, measurement_unit}")
	tags := flag.StringP("tags", "t", "", "optional JSON list of {name, color, slug}")
	configPath := flag.StringP("config", "c", os.Getenv(config.ConfigPathEnvVar), "optional YAML configuration file")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: loadcatalog [--ingredients FILE] [--tags FILE] [--config FILE]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: "console"})
	awsCfg, err := client.LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	service := catalog.NewCatalogService(cfg.Table.Name, cfg.Table.FirstIndex, client.NewDynamoDB(awsCfg, cfg), token.NewGCM())
	l := loader.NewLoader(service)

	if err := loadFile(*ingredients, func(ctx context.Context, f *os.File) (loader.Summary, error) {
		return l.LoadIngredients(ctx, f)
	}); err != nil {
		log.Fatal().Err(err).Str("file", *ingredients).Msg("Failed to load ingredients")
	}
	if *tags != "" {
		if err := loadFile(*tags, func(ctx context.Context, f *os.File) (loader.Summary, error) {
			return l.LoadTags(ctx, f)
		}); err != nil {
			log.Fatal().Err(err).Str("file", *tags).Msg("Failed to load tags")
		}
	}
}
