package data

import "context"

const GLOBAL_ACCOUNT = "Global"

type QueryParams struct {
	Limit     int     `json:"limit"`
	NextToken *string `json:"nextToken"`
}

func (q *QueryParams) GetLimit() *int32 {
	limit := int32(q.Limit)
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return &limit
}

type QueryResults[T interface{}] struct {
	Items     []T     `json:"items"`
	NextToken *string `json:"nextToken"`
}

type NextToken map[string]map[string]string

// Repository is the item-per-key contract shared by the simple resources.
// accountId scopes the partition, itemId is the sort key.
type Repository[T interface{}, I interface{}] interface {
	List(ctx context.Context, accountId string, params QueryParams) (QueryResults[T], error)
	ListIndex(ctx context.Context, indexKey string, params QueryParams) (QueryResults[T], error)
	Get(ctx context.Context, accountId string, itemId string) (T, error)
	BatchGet(ctx context.Context, accountId string, itemIds []string) (map[string]T, error)
	Create(ctx context.Context, accountId string, input I) (T, error)
	CreateWithItemId(ctx context.Context, accountId string, input I, itemId string) (T, error)
	Update(ctx context.Context, accountId string, itemId string, input I) (T, error)
	Delete(ctx context.Context, accountId string, itemId string) error
	DeleteExisting(ctx context.Context, accountId string, itemId string) error
}

// ListAll drains every page of a listing.
func ListAll[T interface{}](list func(QueryParams) (QueryResults[T], error)) ([]T, error) {
	var items []T
	params := QueryParams{Limit: 100}
	for {
		page, err := list(params)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
		if page.NextToken == nil {
			return items, nil
		}
		params.NextToken = page.NextToken
	}
}
