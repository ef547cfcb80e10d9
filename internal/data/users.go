package data

import (
	"context"
	"time"
)

type UserDTO struct {
	PK         string    `dynamodbav:"PK"`
	SK         string    `dynamodbav:"SK"`
	Username   string    `dynamodbav:"username"`
	Email      string    `dynamodbav:"email"`
	FirstName  string    `dynamodbav:"firstName"`
	LastName   string    `dynamodbav:"lastName"`
	CreateTime time.Time `dynamodbav:"createTime"`
	UpdateTime time.Time `dynamodbav:"updateTime"`
}

type UserInputDTO struct {
	Username  string
	Email     *string
	FirstName *string
	LastName  *string
}

type UserService interface {
	Get(ctx context.Context, username string) (UserDTO, error)
	BatchGet(ctx context.Context, usernames []string) (map[string]UserDTO, error)
	List(ctx context.Context, params QueryParams) (QueryResults[UserDTO], error)
	// Save creates or refreshes a profile, keeping emails unique.
	Save(ctx context.Context, input UserInputDTO) (UserDTO, error)
}
