package data_test

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"philcali.me/foodgram/internal/data"
)

func TestGetLimit(t *testing.T) {
	assert.Equal(t, int32(100), *(&data.QueryParams{}).GetLimit())
	assert.Equal(t, int32(6), *(&data.QueryParams{Limit: 6}).GetLimit())
	assert.Equal(t, int32(100), *(&data.QueryParams{Limit: 1000}).GetLimit())
}

func TestListAll(t *testing.T) {
	pages := map[string]data.QueryResults[int]{
		"":    {Items: []int{1, 2}, NextToken: aws.String("two")},
		"two": {Items: []int{3}},
	}
	items, err := data.ListAll(func(params data.QueryParams) (data.QueryResults[int], error) {
		return pages[aws.ToString(params.NextToken)], nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, items)

	_, err = data.ListAll(func(params data.QueryParams) (data.QueryResults[int], error) {
		return data.QueryResults[int]{}, errors.New("boom")
	})
	assert.Error(t, err)
}
