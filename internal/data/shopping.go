package data

import "time"

// MembershipDTO places a recipe in one of a user's collections, either the
// favorites or the shopping cart.
type MembershipDTO struct {
	PK         string    `dynamodbav:"PK"`
	SK         string    `dynamodbav:"SK"`
	FirstIndex string    `dynamodbav:"GS1-PK"`
	FirstSort  string    `dynamodbav:"GS1-SK"`
	Username   string    `dynamodbav:"username"`
	RecipeId   string    `dynamodbav:"recipeId"`
	CreateTime time.Time `dynamodbav:"createTime"`
}

type MembershipInputDTO struct {
	RecipeId *string
}

type MembershipDataService interface {
	Repository[MembershipDTO, MembershipInputDTO]
}
