package routes

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"philcali.me/foodgram/internal/exceptions"
	"philcali.me/foodgram/internal/routes/filters"
)

type Route func(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error)

type Service interface {
	GetRoutes() map[string]Route
}

type CachedMatcher struct {
	Matcher    *regexp.Regexp
	ParamNames []string
	Mutex      *sync.Mutex
}

type CachedRoute struct {
	Method  string
	Path    string
	Route   Route
	Matcher *CachedMatcher
}

var paramPattern = regexp.MustCompile(":[^/]+")

func (cr *CachedMatcher) Refresh(path string) *regexp.Regexp {
	cr.Mutex.Lock()
	defer cr.Mutex.Unlock()
	if cr.Matcher == nil {
		regexPath := paramPattern.ReplaceAllStringFunc(path, func(found string) string {
			cr.ParamNames = append(cr.ParamNames, found[1:])
			return "([^/]+)"
		})
		cr.Matcher = regexp.MustCompile("^" + regexPath + "/?$")
	}
	return cr.Matcher
}

func (cr *CachedRoute) MatchEvent(event events.APIGatewayV2HTTPRequest) (map[string]string, bool) {
	if event.RequestContext.HTTP.Method != cr.Method {
		return nil, false
	}
	matcher := cr.Matcher.Refresh(cr.Path)
	params := make(map[string]string, len(cr.Matcher.ParamNames))
	if event.RawPath == cr.Path {
		return params, true
	}
	values := matcher.FindStringSubmatch(event.RawPath)
	if values == nil {
		return nil, false
	}
	for i, p := range cr.Matcher.ParamNames {
		params[p] = values[i+1]
	}
	return params, true
}

type Router struct {
	Filters []filters.RequestFilter
	Routes  []CachedRoute
}

// NewRouter collects the routes of every service. Literal segments win over
// parameters, so /users/me is tried before /users/:id.
func NewRouter(services ...Service) *Router {
	var routes []CachedRoute
	var fltrs []filters.RequestFilter
	for _, service := range services {
		for composite, route := range service.GetRoutes() {
			parts := strings.SplitN(composite, ":", 2)
			cachedRoute := CachedRoute{
				Method: parts[0],
				Path:   parts[1],
				Route:  route,
				Matcher: &CachedMatcher{
					Mutex: &sync.Mutex{},
				},
			}
			routes = append(routes, cachedRoute)
		}
	}
	sort.SliceStable(routes, func(i, j int) bool {
		left := len(paramPattern.FindAllString(routes[i].Path, -1))
		right := len(paramPattern.FindAllString(routes[j].Path, -1))
		if left != right {
			return left < right
		}
		return routes[i].Path < routes[j].Path
	})
	fltrs = append(fltrs, filters.DefaultCorsFilter())
	fltrs = append(fltrs, filters.DefaultIdentityFilter())
	return &Router{
		Routes:  routes,
		Filters: fltrs,
	}
}

type errorBody struct {
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
	Id      string `json:"id,omitempty"`
}

func translateError(err error) events.APIGatewayV2HTTPResponse {
	se := exceptions.AsServiceError(err)
	payload := errorBody{Message: se.Error()}
	var invalid *exceptions.ValidationError
	if errors.As(err, &invalid) {
		payload.Kind = string(invalid.Kind)
		payload.Id = invalid.Id
	}
	if se.StatusCode >= 500 {
		log.Error().Err(err).Msg("Unhandled route failure")
		payload.Message = "Unexpected internal error"
	}
	body, _ := json.Marshal(payload)
	headers := map[string]string{
		"Content-Type":   "application/json",
		"Content-Length": strconv.Itoa(len(body)),
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: se.StatusCode,
		Body:       string(body),
		Headers:    headers,
	}
}

func (r *Router) dispatch(event events.APIGatewayV2HTTPRequest, ctx context.Context) events.APIGatewayV2HTTPResponse {
	filterContext := filters.DefaultFilterContext(event, ctx)
	for _, filter := range r.Filters {
		updatedContext, broken := filter.Filter(filterContext)
		if broken {
			return *updatedContext.Response
		}
		filterContext = updatedContext
	}
	for _, route := range r.Routes {
		if params, ok := route.MatchEvent(*filterContext.Request); ok {
			resp, err := route.Route(event, context.WithValue(*filterContext.Context, filters.ParamsKey, params))
			if err != nil {
				return translateError(err)
			}
			return resp
		}
	}
	return translateError(exceptions.NotFound("route", event.RawPath))
}

func (r *Router) Invoke(event events.APIGatewayV2HTTPRequest, ctx context.Context) events.APIGatewayV2HTTPResponse {
	start := time.Now()
	resp := r.dispatch(event, ctx)
	log.Info().
		Str("method", event.RequestContext.HTTP.Method).
		Str("path", event.RawPath).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Handled request")
	return resp
}
