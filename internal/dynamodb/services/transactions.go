package services

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// MaxTransactionItems is the DynamoDB limit on actions in one TransactWriteItems.
const MaxTransactionItems = 100

const conditionalCheckFailed = "ConditionalCheckFailed"

// FailedConditions reports, for a cancelled transaction, the indexes of the
// actions whose condition failed. ok is false for any other error.
func FailedConditions(err error) (failed []int, ok bool) {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return nil, false
	}
	for i, reason := range tce.CancellationReasons {
		if aws.ToString(reason.Code) == conditionalCheckFailed {
			failed = append(failed, i)
		}
	}
	return failed, true
}

// MarkerItem is the shape of uniqueness markers: the marked value is the sort
// key and Owner names whoever claimed it.
type MarkerItem struct {
	PK    string `dynamodbav:"PK"`
	SK    string `dynamodbav:"SK"`
	Owner string `dynamodbav:"owner"`
}
