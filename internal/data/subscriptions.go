package data

import "time"

// SubscriptionDTO records that Subscriber follows Author.
type SubscriptionDTO struct {
	PK         string    `dynamodbav:"PK"`
	SK         string    `dynamodbav:"SK"`
	FirstIndex string    `dynamodbav:"GS1-PK"`
	FirstSort  string    `dynamodbav:"GS1-SK"`
	Subscriber string    `dynamodbav:"subscriber"`
	Author     string    `dynamodbav:"author"`
	CreateTime time.Time `dynamodbav:"createTime"`
}

type SubscriptionInputDTO struct {
	Author *string
}

type SubscriptionDataService interface {
	Repository[SubscriptionDTO, SubscriptionInputDTO]
}
