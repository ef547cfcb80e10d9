package tags

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"philcali.me/foodgram/internal/data"
	"philcali.me/foodgram/internal/routes"
	"philcali.me/foodgram/internal/routes/util"
	"philcali.me/foodgram/internal/routes/views"
)

type TagService struct {
	catalog data.CatalogRepository
}

func NewRoute(catalog data.CatalogRepository) routes.Service {
	return &TagService{
		catalog: catalog,
	}
}

func (ts *TagService) GetRoutes() map[string]routes.Route {
	return map[string]routes.Route{
		"GET:/tags":        ts.ListTags,
		"GET:/tags/:tagId": ts.GetTag,
	}
}

func renderTags(tags []data.TagDTO) []views.Tag {
	rendered := make([]views.Tag, 0, len(tags))
	for _, tag := range tags {
		rendered = append(rendered, views.NewTag(tag))
	}
	return rendered
}

func (ts *TagService) ListTags(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	items, err := ts.catalog.ListTags(ctx)
	return util.SerializeResponseOK(renderTags, items, err)
}

func (ts *TagService) GetTag(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	item, err := ts.catalog.GetTag(ctx, util.RequestParam(ctx, "tagId"))
	return util.SerializeResponseOK(views.NewTag, item, err)
}
