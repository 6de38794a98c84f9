package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the posts service.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>postboard API docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// HTML pages are listed too; write routes accept multipart forms and answer with a
// 303 redirect, or 422 JSON when called with X-Requested-With: XMLHttpRequest.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "postboard", "version": "v0.1.0" },
  "components": {
    "schemas": {
      "PostForm": {"type":"object","required":["title","content"],"properties":{"title":{"type":"string","maxLength":255},"content":{"type":"string"},"tags":{"type":"string","description":"comma separated tag names"},"image":{"type":"string","format":"binary"},"_method":{"type":"string","enum":["PUT","PATCH","DELETE"]}}},
      "PostSummary": {"type":"object","properties":{"id":{"type":"string"},"title":{"type":"string"},"image":{"type":"string","nullable":true},"content":{"type":"string"},"tags":{"type":"string"},"routes":{"type":"object","properties":{"show":{"type":"string"},"edit":{"type":"string"},"destroy":{"type":"string"}}}}},
      "ValidationErrors": {"type":"object","properties":{"message":{"type":"string"},"errors":{"type":"object","additionalProperties":{"type":"array","items":{"type":"string"}}}}}
    }
  },
  "paths": {
    "/posts": {
      "get": {
        "summary": "List or search posts (HTML, or JSON for AJAX requests)",
        "parameters": [{"name":"title","in":"query","schema":{"type":"string"}}],
        "responses": { "200": { "description": "posts", "content": {"application/json": {"schema": {"type":"object","properties":{"posts":{"type":"array","items":{"$ref":"#/components/schemas/PostSummary"}}}}}} } }
      },
      "post": {
        "summary": "Create a post",
        "requestBody": { "content": { "multipart/form-data": { "schema": {"$ref":"#/components/schemas/PostForm"} } } },
        "responses": { "303": { "description": "created, redirect to /posts" }, "422": { "description": "validation failed", "content": {"application/json": {"schema": {"$ref":"#/components/schemas/ValidationErrors"}}} } }
      }
    },
    "/posts/create": { "get": { "summary": "Create form", "responses": { "200": { "description": "HTML form" } } } },
    "/posts/{id}": {
      "parameters": [{"name":"id","in":"path","required":true,"schema":{"type":"string"}}],
      "get": { "summary": "Show a post", "responses": { "200": { "description": "HTML page" }, "404": { "description": "unknown id" } } },
      "put": {
        "summary": "Update a post; tags are replaced only when the tags field is sent",
        "requestBody": { "content": { "multipart/form-data": { "schema": {"$ref":"#/components/schemas/PostForm"} } } },
        "responses": { "303": { "description": "updated, redirect to /posts" }, "422": { "description": "validation failed" } }
      },
      "delete": { "summary": "Delete a post and its image", "responses": { "303": { "description": "redirect to /posts" } } }
    },
    "/posts/{id}/edit": { "get": { "summary": "Edit form", "parameters": [{"name":"id","in":"path","required":true,"schema":{"type":"string"}}], "responses": { "200": { "description": "HTML form" }, "404": { "description": "unknown id" } } } },
    "/posts/{id}/image": { "delete": { "summary": "Remove a post's image", "parameters": [{"name":"id","in":"path","required":true,"schema":{"type":"string"}}], "responses": { "303": { "description": "redirect back" } } } },
    "/storage/{key}": { "get": { "summary": "Download a stored image", "parameters": [{"name":"key","in":"path","required":true,"schema":{"type":"string"}}], "responses": { "200": { "description": "image bytes" }, "404": { "description": "no such blob" } } } },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "text exposition" } } } }
  }
}`
