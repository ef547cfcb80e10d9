package favorites

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"philcali.me/foodgram/internal/data"
	"philcali.me/foodgram/internal/dynamodb/services"
	"philcali.me/foodgram/internal/dynamodb/token"
)

const Name = "Favorite"

func NewFavoriteService(tableName string, indexName string, client *dynamodb.Client, marshaler token.TokenMarshaler) data.MembershipDataService {
	return services.NewMembershipService(Name, tableName, indexName, client, marshaler)
}
