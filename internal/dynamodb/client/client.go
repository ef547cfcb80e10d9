package client

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"philcali.me/foodgram/internal/config"
)

// LoadAWSConfig resolves the default credential chain, pinned to the
// configured region when one is set.
func LoadAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.AWS.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWS.Region))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

func NewDynamoDB(awsCfg aws.Config, cfg *config.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.DynamoDB.Endpoint != "" {
			o.EndpointResolver = dynamodb.EndpointResolverFromURL(cfg.DynamoDB.Endpoint)
		}
	})
}

func NewSNS(awsCfg aws.Config) *sns.Client {
	return sns.NewFromConfig(awsCfg)
}
