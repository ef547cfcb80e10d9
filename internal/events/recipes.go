package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"
	"philcali.me/foodgram/internal/data"
	"philcali.me/foodgram/internal/notifications"
)

func isRecipeRoot(record events.DynamoDBEventRecord) bool {
	return strings.HasSuffix(keyOf(record, "PK"), ":Recipe") && keyOf(record, "SK") == "Recipe"
}

func recipeIdOf(record events.DynamoDBEventRecord) string {
	return strings.TrimSuffix(keyOf(record, "PK"), ":Recipe")
}

func imageValue(image map[string]events.DynamoDBAttributeValue, name string) string {
	if value, ok := image[name]; ok && value.DataType() == events.DataTypeString {
		return value.String()
	}
	return ""
}

// DeleteRecipeMembershipsHandler drops every favorite and cart entry that
// points at a removed recipe.
type DeleteRecipeMembershipsHandler struct {
	Memberships map[string]data.MembershipDataService
}

func (dh *DeleteRecipeMembershipsHandler) Filter(record events.DynamoDBEventRecord) bool {
	return record.EventName == "REMOVE" && isRecipeRoot(record)
}

func (dh *DeleteRecipeMembershipsHandler) Apply(ctx context.Context, record events.DynamoDBEventRecord) error {
	recipeId := recipeIdOf(record)
	for name, memberships := range dh.Memberships {
		holders, err := data.ListAll(func(params data.QueryParams) (data.QueryResults[data.MembershipDTO], error) {
			return memberships.ListIndex(ctx, fmt.Sprintf("%s:%s", recipeId, name), params)
		})
		if err != nil {
			return err
		}
		for _, holder := range holders {
			if err := memberships.Delete(ctx, holder.Username, recipeId); err != nil {
				return err
			}
		}
		log.Info().Str("recipeId", recipeId).Str("collection", name).Int("removed", len(holders)).Msg("Removed memberships of deleted recipe")
	}
	return nil
}

func DefaultDeleteMembershipsHandler(memberships map[string]data.MembershipDataService) *DeleteRecipeMembershipsHandler {
	return &DeleteRecipeMembershipsHandler{
		Memberships: memberships,
	}
}

// PublishRecipeHandler announces newly published recipes. The author rides
// along as a message attribute so subscribers can filter on who they follow.
type PublishRecipeHandler struct {
	Notifications notifications.NotificationService
}

func (ph *PublishRecipeHandler) Filter(record events.DynamoDBEventRecord) bool {
	return record.EventName == "INSERT" && isRecipeRoot(record)
}

func (ph *PublishRecipeHandler) Apply(ctx context.Context, record events.DynamoDBEventRecord) error {
	image := record.Change.NewImage
	author := imageValue(image, "author")
	name := imageValue(image, "name")
	messageId, err := ph.Notifications.Publish(ctx, notifications.Notification{
		Subject: "New recipe",
		Message: fmt.Sprintf("%s published %s", author, name),
		Attributes: map[string]string{
			"author":   author,
			"recipeId": recipeIdOf(record),
		},
	})
	if err != nil {
		return err
	}
	log.Debug().Str("messageId", messageId).Str("recipeId", recipeIdOf(record)).Msg("Published recipe notification")
	return nil
}

func DefaultPublishRecipeHandler(service notifications.NotificationService) *PublishRecipeHandler {
	return &PublishRecipeHandler{
		Notifications: service,
	}
}
