package events

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"philcali.me/foodgram/internal/data"
	"philcali.me/foodgram/internal/notifications"
	"philcali.me/foodgram/internal/test/memory"
)

func recipeRecord(eventName string, pk string, sk string, image map[string]events.DynamoDBAttributeValue) events.DynamoDBEventRecord {
	record := events.DynamoDBEventRecord{
		EventName: eventName,
		Change: events.DynamoDBStreamRecord{
			Keys: map[string]events.DynamoDBAttributeValue{
				"PK": events.NewStringAttribute(pk),
				"SK": events.NewStringAttribute(sk),
			},
		},
	}
	if eventName == "REMOVE" {
		record.Change.OldImage = image
	} else {
		record.Change.NewImage = image
	}
	return record
}

type mockNotifications struct {
	mock.Mock
}

func (m *mockNotifications) Publish(ctx context.Context, notification notifications.Notification) (string, error) {
	args := m.Called(notification)
	return args.String(0), args.Error(1)
}

func TestDeleteRecipeMemberships(t *testing.T) {
	ctx := context.Background()
	carts := memory.NewMemberships("Cart")
	favorites := memory.NewMemberships("Favorite")
	for _, username := range []string{"alice", "bob"} {
		_, err := carts.CreateWithItemId(ctx, username, data.MembershipInputDTO{}, "recipe-1")
		require.NoError(t, err)
	}
	_, err := favorites.CreateWithItemId(ctx, "bob", data.MembershipInputDTO{}, "recipe-1")
	require.NoError(t, err)
	_, err = carts.CreateWithItemId(ctx, "bob", data.MembershipInputDTO{}, "recipe-2")
	require.NoError(t, err)

	handler := DefaultDeleteMembershipsHandler(map[string]data.MembershipDataService{
		"Cart":     carts,
		"Favorite": favorites,
	})
	remove := recipeRecord("REMOVE", "recipe-1:Recipe", "Recipe", nil)

	t.Run("Filter", func(t *testing.T) {
		assert.True(t, handler.Filter(remove))
		assert.False(t, handler.Filter(recipeRecord("INSERT", "recipe-1:Recipe", "Recipe", nil)))
		assert.False(t, handler.Filter(recipeRecord("REMOVE", "recipe-1:Recipe", "Tag:1", nil)))
		assert.False(t, handler.Filter(recipeRecord("REMOVE", "bob:Cart", "recipe-1", nil)))
	})

	t.Run("Apply", func(t *testing.T) {
		require.NoError(t, handler.Apply(ctx, remove))
		for _, username := range []string{"alice", "bob"} {
			page, err := carts.List(ctx, username, data.QueryParams{})
			require.NoError(t, err)
			for _, item := range page.Items {
				assert.NotEqual(t, "recipe-1", item.RecipeId)
			}
		}
		_, err := carts.Get(ctx, "bob", "recipe-2")
		assert.NoError(t, err)
		page, err := favorites.List(ctx, "bob", data.QueryParams{})
		require.NoError(t, err)
		assert.Empty(t, page.Items)
	})
}

func TestPublishRecipe(t *testing.T) {
	service := &mockNotifications{}
	service.On("Publish", mock.MatchedBy(func(n notifications.Notification) bool {
		return n.Attributes["author"] == "alice" && n.Attributes["recipeId"] == "recipe-1" && n.Message == "alice published Pancakes"
	})).Return("message-1", nil)
	handler := DefaultPublishRecipeHandler(service)
	insert := recipeRecord("INSERT", "recipe-1:Recipe", "Recipe", map[string]events.DynamoDBAttributeValue{
		"author": events.NewStringAttribute("alice"),
		"name":   events.NewStringAttribute("Pancakes"),
	})

	assert.True(t, handler.Filter(insert))
	assert.False(t, handler.Filter(recipeRecord("MODIFY", "recipe-1:Recipe", "Recipe", nil)))
	require.NoError(t, handler.Apply(context.Background(), insert))
	service.AssertExpectations(t)
}

type failingHandler struct {
	applied int
}

func (f *failingHandler) Filter(record events.DynamoDBEventRecord) bool {
	return true
}

func (f *failingHandler) Apply(ctx context.Context, record events.DynamoDBEventRecord) error {
	f.applied++
	return errors.New("boom")
}

func TestDispatch(t *testing.T) {
	first := &failingHandler{}
	second := &failingHandler{}
	records := []events.DynamoDBEventRecord{
		recipeRecord("INSERT", "recipe-1:Recipe", "Recipe", nil),
		recipeRecord("INSERT", "recipe-2:Recipe", "Recipe", nil),
	}
	failures := Dispatch(context.Background(), []EventFilter{first, second}, records)
	assert.Equal(t, 2, failures)
	assert.Equal(t, 2, first.applied)
	assert.Equal(t, 0, second.applied)
}
