// Package docs registers the OpenAPI document of the browsing API with swag.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/topics": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Browse"],
                "summary": "List topics",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Topic"}}}
                }
            }
        },
        "/topics/{id}/bookmarks": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Browse"],
                "summary": "List bookmarks of a topic",
                "parameters": [
                    {"type": "integer", "description": "Topic ID", "name": "id", "in": "path", "required": true},
                    {"enum": ["asc", "desc"], "type": "string", "description": "Sort by date", "name": "sort", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Bookmark"}}},
                    "400": {"description": "Invalid topic id or sort", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "Topic not found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/slugs/{slug}": {
            "get": {
                "description": "Slugs are lowercased titles with symbols removed and spaces as underscores",
                "produces": ["application/json"],
                "tags": ["Browse"],
                "summary": "Resolve a topic by slug",
                "parameters": [{"type": "string", "description": "Topic slug", "name": "slug", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Topic"}},
                    "404": {"description": "Topic not found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/bookmarks/search": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Browse"],
                "summary": "Search bookmarks",
                "parameters": [
                    {"type": "string", "description": "Substring to match", "name": "q", "in": "query", "required": true},
                    {"enum": ["asc", "desc"], "type": "string", "description": "Sort by date", "name": "sort", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Bookmark"}}},
                    "400": {"description": "Missing query", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/media/{id}": {
            "get": {
                "produces": ["image/jpeg", "video/mp4"],
                "tags": ["Media"],
                "summary": "Get media of a bookmark",
                "parameters": [{"type": "integer", "description": "Message ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "Media bytes"},
                    "404": {"description": "No media", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/thumb/{id}": {
            "get": {
                "produces": ["image/jpeg"],
                "tags": ["Media"],
                "summary": "Get preview image of a bookmark",
                "parameters": [{"type": "integer", "description": "Message ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "Image bytes"},
                    "404": {"description": "No media", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Authentication"],
                "summary": "Admin login",
                "parameters": [{"description": "Admin password", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.LoginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.LoginResponse"}},
                    "400": {"description": "Invalid request body", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/sync": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Sync"],
                "summary": "Run one sync",
                "responses": {
                    "200": {"description": "Run succeeded", "schema": {"$ref": "#/definitions/domain.SyncRun"}},
                    "409": {"description": "A run is already active", "schema": {"$ref": "#/definitions/domain.SyncRun"}},
                    "502": {"description": "Run failed", "schema": {"$ref": "#/definitions/domain.SyncRun"}}
                }
            }
        },
        "/sync/runs": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Sync"],
                "summary": "List recent sync runs",
                "parameters": [{"type": "integer", "description": "Max runs", "name": "limit", "in": "query"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.SyncRun"}}}
                }
            }
        }
    },
    "definitions": {
        "domain.Topic": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "title": {"type": "string"},
                "last_synced": {"type": "string"}
            }
        },
        "domain.Bookmark": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "topic_id": {"type": "integer"},
                "text": {"type": "string"},
                "media_path": {"type": "string"},
                "content_type": {"type": "string", "enum": ["text", "photo", "video"]},
                "date": {"type": "string"}
            }
        },
        "domain.LoginRequest": {
            "type": "object",
            "properties": {"password": {"type": "string"}}
        },
        "domain.LoginResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "expires_at": {"type": "integer"}
            }
        },
        "domain.SyncRun": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "status": {"type": "string", "enum": ["running", "success", "failure", "already_running"]},
                "strategy": {"type": "string", "enum": ["none", "differential", "full"]},
                "stats": {"type": "object"},
                "topic_failures": {"type": "array", "items": {"type": "object"}},
                "error": {"type": "string"},
                "cursor": {"type": "integer"},
                "started_at": {"type": "string"},
                "completed_at": {"type": "string"}
            }
        },
        "http.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string", "example": "invalid request body"}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "JWT Bearer token. Format: \"Bearer {token}\"",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "tg-bookmarks API",
	Description:      "Read-only browsing API over a local mirror of a Telegram forum channel, plus the sync trigger.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
