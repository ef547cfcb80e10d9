package services_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"philcali.me/foodgram/internal/dynamodb/services"
)

func cancelled(codes ...string) error {
	reasons := make([]types.CancellationReason, 0, len(codes))
	for _, code := range codes {
		reasons = append(reasons, types.CancellationReason{Code: aws.String(code)})
	}
	return &types.TransactionCanceledException{
		Message:             aws.String("Transaction cancelled"),
		CancellationReasons: reasons,
	}
}

func TestFailedConditions(t *testing.T) {
	t.Run("MixedReasons", func(t *testing.T) {
		failed, ok := services.FailedConditions(cancelled("None", "ConditionalCheckFailed", "None", "TransactionConflict", "ConditionalCheckFailed"))
		assert.True(t, ok)
		assert.Equal(t, []int{1, 4}, failed)
	})

	t.Run("Wrapped", func(t *testing.T) {
		err := fmt.Errorf("commit: %w", cancelled("ConditionalCheckFailed"))
		failed, ok := services.FailedConditions(err)
		assert.True(t, ok)
		assert.Equal(t, []int{0}, failed)
	})

	t.Run("NoConditionFailed", func(t *testing.T) {
		failed, ok := services.FailedConditions(cancelled("None", "ThrottlingError"))
		assert.True(t, ok)
		assert.Empty(t, failed)
	})

	t.Run("OtherError", func(t *testing.T) {
		failed, ok := services.FailedConditions(errors.New("boom"))
		assert.False(t, ok)
		assert.Nil(t, failed)
	})

	t.Run("NilError", func(t *testing.T) {
		_, ok := services.FailedConditions(nil)
		assert.False(t, ok)
	})
}
