package token

import "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

// TokenMarshaler turns a DynamoDB LastEvaluatedKey into an opaque page token
// bound to the scope it was issued for, and back.
type TokenMarshaler interface {
	Marshal(scope string, lastKey map[string]types.AttributeValue) (*string, error)

	Unmarshal(scope string, token *string) (map[string]types.AttributeValue, error)
}
