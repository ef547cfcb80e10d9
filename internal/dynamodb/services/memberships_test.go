//go:build integration

package services_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"philcali.me/foodgram/internal/data"
	"philcali.me/foodgram/internal/dynamodb/favorites"
	"philcali.me/foodgram/internal/dynamodb/shopping"
	"philcali.me/foodgram/internal/dynamodb/subscriptions"
	"philcali.me/foodgram/internal/dynamodb/token"
	"philcali.me/foodgram/internal/exceptions"
	"philcali.me/foodgram/internal/test"
)

func TestMembershipServices(t *testing.T) {
	client := test.NewTable(t)
	ctx := context.Background()
	marshaler := token.NewGCM()
	carts := shopping.NewCartService(test.TableName, test.FirstIndex, client, marshaler)
	favs := favorites.NewFavoriteService(test.TableName, test.FirstIndex, client, marshaler)

	t.Run("AddIsNotRepeated", func(t *testing.T) {
		created, err := carts.CreateWithItemId(ctx, "alice", data.MembershipInputDTO{}, "recipe-1")
		require.NoError(t, err)
		assert.Equal(t, "alice", created.Username)
		assert.Equal(t, "recipe-1:Cart", created.FirstIndex)

		_, err = carts.CreateWithItemId(ctx, "alice", data.MembershipInputDTO{}, "recipe-1")
		var conflict *exceptions.ConflictError
		assert.ErrorAs(t, err, &conflict)

		page, err := carts.List(ctx, "alice", data.QueryParams{})
		require.NoError(t, err)
		assert.Len(t, page.Items, 1)
	})

	t.Run("CollectionsAreSeparate", func(t *testing.T) {
		_, err := favs.Get(ctx, "alice", "recipe-1")
		var notFound *exceptions.NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("ReverseIndex", func(t *testing.T) {
		_, err := carts.CreateWithItemId(ctx, "bob", data.MembershipInputDTO{}, "recipe-1")
		require.NoError(t, err)
		holders, err := carts.ListIndex(ctx, "recipe-1:Cart", data.QueryParams{})
		require.NoError(t, err)
		assert.Len(t, holders.Items, 2)
	})

	t.Run("RemoveMissing", func(t *testing.T) {
		require.NoError(t, carts.DeleteExisting(ctx, "alice", "recipe-1"))
		err := carts.DeleteExisting(ctx, "alice", "recipe-1")
		var notFound *exceptions.NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("Subscriptions", func(t *testing.T) {
		subs := subscriptions.NewSubscriptionDynamoDBService(test.TableName, test.FirstIndex, client, marshaler)
		created, err := subs.CreateWithItemId(ctx, "bob", data.SubscriptionInputDTO{Author: aws.String("alice")}, "alice")
		require.NoError(t, err)
		assert.Equal(t, "bob", created.Subscriber)
		followers, err := subs.ListIndex(ctx, "alice:Subscriber", data.QueryParams{})
		require.NoError(t, err)
		require.Len(t, followers.Items, 1)
		assert.Equal(t, "bob", followers.Items[0].Subscriber)
	})
}
