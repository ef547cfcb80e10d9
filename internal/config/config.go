// Package config loads application settings with koanf from built-in
// defaults, an optional YAML file and the environment, in that order.
package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar points at an optional YAML file layered over the defaults.
const ConfigPathEnvVar = "CONFIG_PATH"

type TableConfig struct {
	Name        string `koanf:"name" validate:"required"`
	FirstIndex  string `koanf:"first_index" validate:"required"`
	SecondIndex string `koanf:"second_index" validate:"required"`
}

type DynamoDBConfig struct {
	// Endpoint overrides the AWS resolved endpoint, used against DynamoDB Local.
	Endpoint string `koanf:"endpoint" validate:"omitempty,url"`
}

type AWSConfig struct {
	Region string `koanf:"region"`
}

type AuthConfig struct {
	// PoolURL is the identity provider base, queried at /oauth2/userInfo.
	PoolURL string `koanf:"pool_url" validate:"omitempty,url"`
}

type NotificationsConfig struct {
	TopicArn string `koanf:"topic_arn"`
}

// RecipeConfig holds the numeric limits a recipe payload is validated against.
type RecipeConfig struct {
	MinCookingTime int `koanf:"min_cooking_time" validate:"min=0"`
	MaxCookingTime int `koanf:"max_cooking_time" validate:"gtefield=MinCookingTime"`
	MinAmount      int `koanf:"min_amount" validate:"min=0"`
	MaxAmount      int `koanf:"max_amount" validate:"gtefield=MinAmount"`
	MaxNameLength  int `koanf:"max_name_length" validate:"min=1"`
}

type ShoppingConfig struct {
	FileName string `koanf:"file_name" validate:"required"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

type Config struct {
	Table         TableConfig         `koanf:"table"`
	DynamoDB      DynamoDBConfig      `koanf:"dynamodb"`
	AWS           AWSConfig           `koanf:"aws"`
	Auth          AuthConfig          `koanf:"auth"`
	Notifications NotificationsConfig `koanf:"notifications"`
	Recipes       RecipeConfig        `koanf:"recipes"`
	Shopping      ShoppingConfig      `koanf:"shopping"`
	Logging       LoggingConfig       `koanf:"logging"`
}

func Defaults() *Config {
	return &Config{
		Table: TableConfig{
			Name:        "RecipeData",
			FirstIndex:  "GS1",
			SecondIndex: "GS2",
		},
		Recipes: RecipeConfig{
			MinCookingTime: 1,
			MaxCookingTime: 32767,
			MinAmount:      1,
			MaxAmount:      32767,
			MaxNameLength:  200,
		},
		Shopping: ShoppingConfig{
			FileName: "shopping_list.txt",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// envMappings keeps the environment names the lambdas have always been
// deployed with.
var envMappings = map[string]string{
	"table_name":        "table.name",
	"topic_arn":         "notifications.topic_arn",
	"auth_pool_url":     "auth.pool_url",
	"dynamodb_endpoint": "dynamodb.endpoint",
	"aws_region":        "aws.region",
	"log_level":         "logging.level",
	"log_format":        "logging.format",
	"shopping_file":     "shopping.file_name",
}

var recognizedPrefixes = []string{
	"table_",
	"dynamodb_",
	"notifications_",
	"recipes_",
	"shopping_",
	"logging_",
}

func envTransform(key string) string {
	key = strings.ToLower(key)
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	for _, prefix := range recognizedPrefixes {
		if strings.HasPrefix(key, prefix) {
			return strings.Replace(key, "_", ".", 1)
		}
	}
	// Unrelated variables are dropped.
	return ""
}

func Load() (*Config, error) {
	return LoadWithEnv(os.Getenv(ConfigPathEnvVar))
}

func LoadWithEnv(configPath string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}
	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func (c *Config) Validate() error {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate.Struct(c)
}
