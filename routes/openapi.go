package routes

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"
	"github.com/gin-gonic/gin"
)

const apiDescription = `A full-featured blog API.

This API provides endpoints for managing blog posts, categories, and comments.
Features include:
* Authentication using Bearer tokens
* Post creation and management
* Category organization
* Comment system
* Filtering and pagination`

const bearerScheme = "bearerAuth"

var apiTags = openapi3.Tags{
	{Name: "categories", Description: "Operations with blog categories"},
	{Name: "posts", Description: "Operations with blog posts"},
	{Name: "comments", Description: "Operations with post comments"},
	{Name: "auth", Description: "Registration, login and bearer tokens"},
}

// endpoint describes one route for both the gin engine and the OpenAPI document.
type endpoint struct {
	method  string
	path    string // gin syntax, relative to /api
	tag     string
	summary string
	public  bool
	query   []*openapi3.Parameter
	body    interface{}
	status  int
	resp    interface{}
	handler gin.HandlerFunc
}

func (e endpoint) operationID() string {
	id := strings.ToLower(e.method)
	for _, part := range strings.Split(strings.Trim(e.path, "/"), "/") {
		part = strings.TrimPrefix(part, ":")
		if part == "" {
			continue
		}
		id += "_" + part
	}
	return id
}

// openAPIPath turns gin's ":id" segments into "{id}".
func openAPIPath(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if strings.HasPrefix(part, ":") {
			parts[i] = "{" + part[1:] + "}"
		}
	}
	return "/api" + strings.Join(parts, "/")
}

// buildOpenAPI renders the document served at /api/openapi.json.
func buildOpenAPI(endpoints []endpoint) (*openapi3.T, error) {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "Blog API",
			Version:     "1.0.0",
			Description: apiDescription,
		},
		Tags:  apiTags,
		Paths: openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{},
			SecuritySchemes: openapi3.SecuritySchemes{
				bearerScheme: &openapi3.SecuritySchemeRef{Value: openapi3.NewJWTSecurityScheme()},
			},
		},
		Security: openapi3.SecurityRequirements{openapi3.NewSecurityRequirement().Authenticate(bearerScheme)},
	}

	for _, e := range endpoints {
		op, err := buildOperation(doc.Components.Schemas, e)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", e.method, e.path, err)
		}
		path := openAPIPath(e.path)
		item := doc.Paths.Value(path)
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths.Set(path, item)
		}
		item.SetOperation(e.method, op)
	}
	return doc, nil
}

func buildOperation(schemas openapi3.Schemas, e endpoint) (*openapi3.Operation, error) {
	op := openapi3.NewOperation()
	op.OperationID = e.operationID()
	op.Summary = e.summary
	if e.tag != "" {
		op.Tags = []string{e.tag}
	}
	if e.public {
		op.Security = openapi3.NewSecurityRequirements()
	}

	for _, segment := range strings.Split(e.path, "/") {
		if strings.HasPrefix(segment, ":") {
			p := openapi3.NewPathParameter(segment[1:]).WithSchema(openapi3.NewIntegerSchema())
			op.AddParameter(p)
		}
	}
	for _, p := range e.query {
		op.AddParameter(p)
	}

	if e.body != nil {
		ref, err := openapi3gen.NewSchemaRefForValue(e.body, schemas)
		if err != nil {
			return nil, err
		}
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchemaRef(ref),
		}
	}

	status := e.status
	if status == 0 {
		status = http.StatusOK
	}
	envelope, err := envelopeSchema(schemas, e.resp)
	if err != nil {
		return nil, err
	}
	op.AddResponse(status, openapi3.NewResponse().
		WithDescription(http.StatusText(status)).
		WithJSONSchemaRef(envelope))
	op.AddResponse(0, openapi3.NewResponse().
		WithDescription("Error envelope with a non-zero code").
		WithJSONSchemaRef(openapi3.NewSchemaRef("", errorEnvelope())))
	return op, nil
}

// envelopeSchema wraps data in the {code, message, data} response envelope.
func envelopeSchema(schemas openapi3.Schemas, data interface{}) (*openapi3.SchemaRef, error) {
	s := errorEnvelope()
	if data != nil {
		ref, err := openapi3gen.NewSchemaRefForValue(data, schemas)
		if err != nil {
			return nil, err
		}
		s.WithPropertyRef("data", ref)
	}
	return openapi3.NewSchemaRef("", s), nil
}

func errorEnvelope() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("code", openapi3.NewIntegerSchema()).
		WithProperty("message", openapi3.NewStringSchema())
}

func queryInt(name, description string) *openapi3.Parameter {
	return openapi3.NewQueryParameter(name).WithDescription(description).WithSchema(openapi3.NewIntegerSchema())
}

func queryString(name, description string) *openapi3.Parameter {
	return openapi3.NewQueryParameter(name).WithDescription(description).WithSchema(openapi3.NewStringSchema())
}

func queryBool(name, description string) *openapi3.Parameter {
	return openapi3.NewQueryParameter(name).WithDescription(description).WithSchema(openapi3.NewBoolSchema())
}

func paginationParams() []*openapi3.Parameter {
	return []*openapi3.Parameter{
		queryInt("page", "Page number, starting at 1"),
		queryInt("page_size", "Items per page, at most 100"),
	}
}

const docsPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Blog API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({ url: "/api/openapi.json", dom_id: "#swagger-ui", persistAuthorization: true });
  </script>
</body>
</html>`

func serveDocs(ctx *gin.Context) {
	ctx.Data(http.StatusOK, "text/html; charset=utf-8", []byte(docsPage))
}
