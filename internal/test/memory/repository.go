// Package memory holds in-process stand-ins for the DynamoDB services, for
// tests that exercise handlers without a table.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/google/uuid"
	"philcali.me/foodgram/internal/data"
	"philcali.me/foodgram/internal/exceptions"
)

// Repository keeps items per account, ordered by item id. Page tokens are
// the last returned item id.
type Repository[T interface{}, I interface{}] struct {
	Name     string
	OnCreate func(input I, now time.Time, accountId string, itemId string) T
	OnUpdate func(item T, input I) T
	// IndexKey returns the reverse index key of an item, if it has one.
	IndexKey func(item T) string
	mu       sync.Mutex
	items    map[string]map[string]T
}

func NewRepository[T interface{}, I interface{}](name string, onCreate func(I, time.Time, string, string) T) *Repository[T, I] {
	return &Repository[T, I]{
		Name:     name,
		OnCreate: onCreate,
		items:    map[string]map[string]T{},
	}
}

func page[T interface{}](ids []string, lookup func(string) T, params data.QueryParams) data.QueryResults[T] {
	sort.Strings(ids)
	start := 0
	if params.NextToken != nil {
		start = sort.SearchStrings(ids, *params.NextToken)
		if start < len(ids) && ids[start] == *params.NextToken {
			start++
		}
	}
	limit := int(*params.GetLimit())
	results := data.QueryResults[T]{Items: []T{}}
	for i := start; i < len(ids) && len(results.Items) < limit; i++ {
		results.Items = append(results.Items, lookup(ids[i]))
		if len(results.Items) == limit && i+1 < len(ids) {
			results.NextToken = aws.String(ids[i])
		}
	}
	return results
}

func (r *Repository[T, I]) List(ctx context.Context, accountId string, params data.QueryParams) (data.QueryResults[T], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account := r.items[accountId]
	ids := make([]string, 0, len(account))
	for id := range account {
		ids = append(ids, id)
	}
	return page(ids, func(id string) T { return account[id] }, params), nil
}

func (r *Repository[T, I]) ListIndex(ctx context.Context, indexKey string, params data.QueryParams) (data.QueryResults[T], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := map[string]T{}
	if r.IndexKey != nil {
		for accountId, account := range r.items {
			for _, item := range account {
				if r.IndexKey(item) == indexKey {
					matches[accountId] = item
				}
			}
		}
	}
	ids := make([]string, 0, len(matches))
	for id := range matches {
		ids = append(ids, id)
	}
	return page(ids, func(id string) T { return matches[id] }, params), nil
}

func (r *Repository[T, I]) Get(ctx context.Context, accountId string, itemId string) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[accountId][itemId]
	if !ok {
		return item, exceptions.NotFound(strings.ToLower(r.Name), itemId)
	}
	return item, nil
}

func (r *Repository[T, I]) BatchGet(ctx context.Context, accountId string, itemIds []string) (map[string]T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	results := map[string]T{}
	for _, id := range itemIds {
		if item, ok := r.items[accountId][id]; ok {
			results[id] = item
		}
	}
	return results, nil
}

func (r *Repository[T, I]) Create(ctx context.Context, accountId string, input I) (T, error) {
	return r.CreateWithItemId(ctx, accountId, input, uuid.NewString())
}

func (r *Repository[T, I]) CreateWithItemId(ctx context.Context, accountId string, input I, itemId string) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.items[accountId][itemId]; ok {
		return existing, exceptions.Conflict(strings.ToLower(r.Name), itemId)
	}
	item := r.OnCreate(input, time.Now(), accountId, itemId)
	if r.items[accountId] == nil {
		r.items[accountId] = map[string]T{}
	}
	r.items[accountId][itemId] = item
	return item, nil
}

func (r *Repository[T, I]) Update(ctx context.Context, accountId string, itemId string, input I) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[accountId][itemId]
	if !ok {
		return item, exceptions.NotFound(strings.ToLower(r.Name), itemId)
	}
	if r.OnUpdate != nil {
		item = r.OnUpdate(item, input)
		r.items[accountId][itemId] = item
	}
	return item, nil
}

func (r *Repository[T, I]) Delete(ctx context.Context, accountId string, itemId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items[accountId], itemId)
	return nil
}

func (r *Repository[T, I]) DeleteExisting(ctx context.Context, accountId string, itemId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[accountId][itemId]; !ok {
		return exceptions.NotFound(strings.ToLower(r.Name), itemId)
	}
	delete(r.items[accountId], itemId)
	return nil
}

func NewMemberships(name string) *Repository[data.MembershipDTO, data.MembershipInputDTO] {
	repo := NewRepository(name, func(input data.MembershipInputDTO, now time.Time, username string, recipeId string) data.MembershipDTO {
		return data.MembershipDTO{
			PK:         username + ":" + name,
			SK:         recipeId,
			FirstIndex: recipeId + ":" + name,
			FirstSort:  username,
			Username:   username,
			RecipeId:   recipeId,
			CreateTime: now,
		}
	})
	repo.IndexKey = func(item data.MembershipDTO) string {
		return item.FirstIndex
	}
	return repo
}

func NewSubscriptions() *Repository[data.SubscriptionDTO, data.SubscriptionInputDTO] {
	repo := NewRepository("Subscription", func(input data.SubscriptionInputDTO, now time.Time, subscriber string, author string) data.SubscriptionDTO {
		return data.SubscriptionDTO{
			PK:         subscriber + ":Subscription",
			SK:         author,
			FirstIndex: author + ":Subscriber",
			FirstSort:  subscriber,
			Subscriber: subscriber,
			Author:     author,
			CreateTime: now,
		}
	})
	repo.IndexKey = func(item data.SubscriptionDTO) string {
		return item.FirstIndex
	}
	return repo
}
