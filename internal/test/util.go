//go:build integration

// Package test starts DynamoDB Local in a container and provisions the
// application table for integration tests.
package test

import (
	"context"
	"fmt"
	"os/exec"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	LocalImage  = "amazon/dynamodb-local:2.5.2"
	localPort   = "8000/tcp"
	TableName   = "RecipeData"
	FirstIndex  = "GS1"
	SecondIndex = "GS2"
)

// SkipIfNoDocker skips the test when no Docker daemon is reachable.
func SkipIfNoDocker(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if exec.CommandContext(ctx, "docker", "info").Run() != nil {
		t.Skip("Skipping test: Docker not available")
	}
}

type LocalDynamoServer struct {
	Container testcontainers.Container
	Endpoint  string
}

func StartLocalServer(t *testing.T) *LocalDynamoServer {
	t.Helper()
	SkipIfNoDocker(t)
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        LocalImage,
			ExposedPorts: []string{localPort},
			Cmd:          []string{"-jar", "DynamoDBLocal.jar", "-inMemory", "-sharedDb"},
			WaitingFor:   wait.ForListeningPort(localPort).WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start local DDB server: %s", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to resolve container host: %s", err)
	}
	port, err := container.MappedPort(ctx, localPort)
	if err != nil {
		t.Fatalf("Failed to resolve mapped port: %s", err)
	}
	return &LocalDynamoServer{
		Container: container,
		Endpoint:  fmt.Sprintf("http://%s:%s", host, port.Port()),
	}
}

func (l *LocalDynamoServer) CreateLocalClient() (*dynamodb.Client, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRetryMaxAttempts(10),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{
				AccessKeyID:     "fake",
				SecretAccessKey: "fake",
				SessionToken:    "fake",
			}}),
	)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		o.EndpointResolver = dynamodb.EndpointResolverFromURL(l.Endpoint)
	}), nil
}

func globalIndex(name string, prefix string) types.GlobalSecondaryIndex {
	return types.GlobalSecondaryIndex{
		IndexName: aws.String(name),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(prefix + "-PK"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(prefix + "-SK"), KeyType: types.KeyTypeRange},
		},
		Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
	}
}

// CreateTable provisions the single table with both global indexes.
func CreateTable(client *dynamodb.Client) (string, error) {
	keySchema := []types.KeySchemaElement{
		{
			AttributeName: aws.String("PK"),
			KeyType:       types.KeyTypeHash,
		},
		{
			AttributeName: aws.String("SK"),
			KeyType:       types.KeyTypeRange,
		},
	}
	attributes := []types.AttributeDefinition{}
	for _, name := range []string{"PK", "SK", "GS1-PK", "GS1-SK", "GS2-PK", "GS2-SK"} {
		attributes = append(attributes, types.AttributeDefinition{
			AttributeName: aws.String(name),
			AttributeType: types.ScalarAttributeTypeS,
		})
	}
	output, err := client.CreateTable(context.TODO(), &dynamodb.CreateTableInput{
		TableName:            aws.String(TableName),
		KeySchema:            keySchema,
		BillingMode:          types.BillingModePayPerRequest,
		AttributeDefinitions: attributes,
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			globalIndex(FirstIndex, "GS1"),
			globalIndex(SecondIndex, "GS2"),
		},
	})
	if err != nil {
		return "", err
	}
	waiter := dynamodb.NewTableExistsWaiter(client, func(tewo *dynamodb.TableExistsWaiterOptions) {
		tewo.LogWaitAttempts = true
	})
	_, err = waiter.WaitForOutput(context.TODO(), &dynamodb.DescribeTableInput{
		TableName: output.TableDescription.TableName,
	}, time.Second*5)
	return *output.TableDescription.TableName, err
}

// NewTable starts DynamoDB Local and returns a client bound to a fresh table.
func NewTable(t *testing.T) *dynamodb.Client {
	t.Helper()
	server := StartLocalServer(t)
	client, err := server.CreateLocalClient()
	if err != nil {
		t.Fatalf("Failed to create local client: %s", err)
	}
	if _, err := CreateTable(client); err != nil {
		t.Fatalf("Failed to create table: %s", err)
	}
	return client
}
