package events

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"
)

type EventFilter interface {
	Filter(record events.DynamoDBEventRecord) bool
	Apply(ctx context.Context, record events.DynamoDBEventRecord) error
}

// Dispatch hands every record to each handler that accepts it. A failing
// handler is logged and does not stop the remaining records.
func Dispatch(ctx context.Context, handlers []EventFilter, records []events.DynamoDBEventRecord) int {
	failures := 0
	for _, record := range records {
		for _, handler := range handlers {
			if !handler.Filter(record) {
				continue
			}
			if err := handler.Apply(ctx, record); err != nil {
				failures++
				log.Error().Err(err).
					Str("eventId", record.EventID).
					Str("eventName", record.EventName).
					Str("pk", keyOf(record, "PK")).
					Msg("Failed to handle stream record")
				break
			}
		}
	}
	return failures
}

func keyOf(record events.DynamoDBEventRecord, name string) string {
	if value, ok := record.Change.Keys[name]; ok && value.DataType() == events.DataTypeString {
		return value.String()
	}
	return ""
}
