package filters

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

type ContextKey string

const (
	ParamsKey   ContextKey = "Params"
	IdentityKey ContextKey = "Identity"
)

// Identity is the caller resolved by the authorizer.
type Identity struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	IsStaff   bool
}

type FilterContext struct {
	Request  *events.APIGatewayV2HTTPRequest
	Response *events.APIGatewayV2HTTPResponse
	Context  *context.Context
}

type RequestFilter interface {
	Filter(ctx *FilterContext) (*FilterContext, bool)
}

type CorsFilter struct {
	Methods []string
	Origins []string
	Headers []string
}

func (cf *CorsFilter) Filter(ctx *FilterContext) (*FilterContext, bool) {
	if ctx.Request.RequestContext.HTTP.Method == "OPTIONS" {
		headers := ctx.Response.Headers
		if headers == nil {
			headers = make(map[string]string, 4)
		}
		headers["content-length"] = "0"
		headers["access-control-allow-headers"] = strings.Join(cf.Headers, ", ")
		headers["access-control-allow-methods"] = strings.Join(cf.Methods, ", ")
		headers["access-control-allow-origin"] = strings.Join(cf.Origins, ", ")
		return &FilterContext{
			Request: ctx.Request,
			Context: ctx.Context,
			Response: &events.APIGatewayV2HTTPResponse{
				Headers:    headers,
				StatusCode: ctx.Response.StatusCode,
			},
		}, true
	}
	return ctx, false
}

func claimString(claims map[string]interface{}, field string) string {
	if value, ok := claims[field]; ok && value != nil {
		return fmt.Sprintf("%v", value)
	}
	return ""
}

func claimBool(value string) bool {
	parsed, err := strconv.ParseBool(value)
	return err == nil && parsed
}

// IdentityFromRequest reads the caller from the Lambda authorizer context,
// falling back to JWT authorizer claims.
func IdentityFromRequest(request *events.APIGatewayV2HTTPRequest, claimsField string) (*Identity, bool) {
	claims := map[string]interface{}{}
	if request.RequestContext.Authorizer != nil {
		if nested, ok := request.RequestContext.Authorizer.Lambda[claimsField].(map[string]interface{}); ok {
			claims = nested
		} else if jwt := request.RequestContext.Authorizer.JWT; jwt != nil {
			for field, value := range jwt.Claims {
				claims[field] = value
			}
		}
	}
	username := claimString(claims, "username")
	if username == "" {
		return nil, false
	}
	return &Identity{
		Username:  username,
		Email:     claimString(claims, "email"),
		FirstName: claimString(claims, "given_name"),
		LastName:  claimString(claims, "family_name"),
		IsStaff:   claimBool(claimString(claims, "is_staff")),
	}, true
}

// IdentityFilter places the caller in the request context. Reads stay open
// to anonymous callers; any other method needs an identity.
type IdentityFilter struct {
	ClaimsField string
}

func (f *IdentityFilter) Filter(ctx *FilterContext) (*FilterContext, bool) {
	identity, ok := IdentityFromRequest(ctx.Request, f.ClaimsField)
	if ok {
		updated := context.WithValue(*ctx.Context, IdentityKey, identity)
		return &FilterContext{
			Request:  ctx.Request,
			Response: ctx.Response,
			Context:  &updated,
		}, false
	}
	method := ctx.Request.RequestContext.HTTP.Method
	if method == "GET" || method == "HEAD" || method == "OPTIONS" {
		return ctx, false
	}
	body := "{\"message\": \"Authentication credentials were not provided\"}"
	return &FilterContext{
		Request: ctx.Request,
		Context: ctx.Context,
		Response: &events.APIGatewayV2HTTPResponse{
			Headers: map[string]string{
				"Content-Type":   "application/json",
				"Content-Length": strconv.Itoa(len(body)),
			},
			StatusCode: 401,
			Body:       body,
		},
	}, true
}

func DefaultFilterContext(event events.APIGatewayV2HTTPRequest, ctx context.Context) *FilterContext {
	return &FilterContext{
		Request: &event,
		Response: &events.APIGatewayV2HTTPResponse{
			StatusCode: 200,
		},
		Context: &ctx,
	}
}

func DefaultCorsFilter() *CorsFilter {
	methods := [5]string{"GET", "PUT", "PATCH", "POST", "DELETE"}
	headers := [3]string{"Content-Type", "Content-Length", "Authorization"}
	origins := [1]string{"*"}
	return &CorsFilter{
		Methods: methods[:],
		Headers: headers[:],
		Origins: origins[:],
	}
}

func DefaultIdentityFilter() *IdentityFilter {
	return &IdentityFilter{
		ClaimsField: "claims",
	}
}
