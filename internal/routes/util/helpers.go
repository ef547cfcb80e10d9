package util

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/goccy/go-json"
	"philcali.me/foodgram/internal/data"
	"philcali.me/foodgram/internal/exceptions"
	"philcali.me/foodgram/internal/routes"
	"philcali.me/foodgram/internal/routes/filters"
)

// AuthorizedRoute rejects anonymous callers with a 401.
func AuthorizedRoute(route routes.Route) routes.Route {
	return func(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
		if _, ok := Identity(ctx); !ok {
			return events.APIGatewayV2HTTPResponse{}, exceptions.Unauthenticated()
		}
		return route(event, ctx)
	}
}

func Identity(ctx context.Context) (*filters.Identity, bool) {
	identity, ok := ctx.Value(filters.IdentityKey).(*filters.Identity)
	return identity, ok && identity != nil
}

// Username is empty for anonymous callers.
func Username(ctx context.Context) string {
	if identity, ok := Identity(ctx); ok {
		return identity.Username
	}
	return ""
}

func RequestParam(ctx context.Context, name string) string {
	params, _ := ctx.Value(filters.ParamsKey).(map[string]string)
	return params[name]
}

func QueryParam(event events.APIGatewayV2HTTPRequest, name string) string {
	return event.QueryStringParameters[name]
}

// QueryValues splits a repeated query parameter, which API Gateway joins
// with commas.
func QueryValues(event events.APIGatewayV2HTTPRequest, name string) []string {
	var values []string
	for _, value := range strings.Split(event.QueryStringParameters[name], ",") {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

func QueryFlag(event events.APIGatewayV2HTTPRequest, name string) bool {
	switch strings.ToLower(event.QueryStringParameters[name]) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func QueryInt(event events.APIGatewayV2HTTPRequest, name string) (int, bool, error) {
	raw, ok := event.QueryStringParameters[name]
	if !ok || raw == "" {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, false, exceptions.InvalidInput(fmt.Sprintf("Query parameter %s must be a non-negative integer", name))
	}
	return value, true, nil
}

// PageParams reads limit and nextToken off the query string.
func PageParams(event events.APIGatewayV2HTTPRequest) (data.QueryParams, error) {
	params := data.QueryParams{}
	limit, ok, err := QueryInt(event, "limit")
	if err != nil {
		return params, err
	}
	if ok {
		params.Limit = limit
	}
	if nextToken, ok := event.QueryStringParameters["nextToken"]; ok && nextToken != "" {
		params.NextToken = &nextToken
	}
	return params, nil
}

func SerializeResponse[T interface{}, R interface{}](delayed func(T) R, thing T, err error, statusCode int) (events.APIGatewayV2HTTPResponse, error) {
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	body, err := json.Marshal(delayed(thing))
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	headers := map[string]string{
		"Content-Type":   "application/json",
		"Content-Length": strconv.Itoa(len(body)),
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: statusCode,
		Headers:    headers,
		Body:       string(body),
	}, nil
}

func SerializeResponseOK[T interface{}, R interface{}](delayed func(T) R, thing T, err error) (events.APIGatewayV2HTTPResponse, error) {
	return SerializeResponse(delayed, thing, err, 200)
}

func SerializeResponseCreated[T interface{}, R interface{}](delayed func(T) R, thing T, err error) (events.APIGatewayV2HTTPResponse, error) {
	return SerializeResponse(delayed, thing, err, 201)
}

func SerializeResponseNoContent(err error) (events.APIGatewayV2HTTPResponse, error) {
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: 204,
	}, nil
}

// SerializeAttachment returns text as a downloadable file.
func SerializeAttachment(text string, fileName string, err error) (events.APIGatewayV2HTTPResponse, error) {
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: 200,
		Headers: map[string]string{
			"Content-Type":        "text/plain; charset=utf-8",
			"Content-Length":      strconv.Itoa(len(text)),
			"Content-Disposition": fmt.Sprintf("attachment; filename=%q", fileName),
		},
		Body: text,
	}, nil
}

// Passthrough serializes a value that is already its own representation.
func Passthrough[T interface{}](thing T) T {
	return thing
}

func ConvertQueryResults[D interface{}, R interface{}](items data.QueryResults[D], thunk func(D) R) data.QueryResults[R] {
	if items.Items != nil {
		newItems := make([]R, len(items.Items))
		for i, rd := range items.Items {
			newItems[i] = thunk(rd)
		}
		return data.QueryResults[R]{
			Items:     newItems,
			NextToken: items.NextToken,
		}
	}
	return data.QueryResults[R]{
		Items:     make([]R, 0),
		NextToken: items.NextToken,
	}
}

func ConvertQueryResultsPartial[D interface{}, R interface{}](thunk func(D) R) func(data.QueryResults[D]) data.QueryResults[R] {
	return func(d data.QueryResults[D]) data.QueryResults[R] {
		return ConvertQueryResults(d, thunk)
	}
}
