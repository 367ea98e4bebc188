// Package docs registers the OpenAPI description served under /swagger.
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
        "/health": {
            "get": {
                "description": "Reports feed connectivity; 503 while the feed is disconnected",
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handlers.HealthResponse"}}
                }
            }
        },
        "/api/v1/dashboard": {
            "get": {
                "produces": ["application/json"],
                "tags": ["dashboard"],
                "summary": "Current dashboard state",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.DashboardView"}}
                }
            }
        },
        "/api/v1/dashboard/history": {
            "get": {
                "description": "Up to five entries, newest first",
                "produces": ["application/json"],
                "tags": ["dashboard"],
                "summary": "Recent readings",
                "responses": {
                    "200": {"description": "count, history", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/api/v1/manual-water/toggle": {
            "post": {
                "description": "Flips the manual-water flag and sends one command to the device without waiting for it",
                "produces": ["application/json"],
                "tags": ["dashboard"],
                "summary": "Toggle manual watering",
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/handlers.ToggleResponse"}}
                }
            }
        },
        "/api/v1/logs": {
            "get": {
                "description": "Filter logs by date (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'). If 'to' is date-only, it is treated as end-of-day inclusive.",
                "produces": ["application/json"],
                "tags": ["logs"],
                "summary": "List logs",
                "parameters": [
                    {"type": "string", "example": "2025-08-01", "name": "from", "in": "query"},
                    {"type": "string", "example": "2025-08-31", "name": "to", "in": "query"},
                    {"enum": ["TOGGLE", "COMMAND_SENT", "COMMAND_FAILED", "STATUS_CHANGE", "WARNING"], "type": "string", "name": "type", "in": "query"},
                    {"type": "integer", "description": "Keep only the newest N matching events (1-500)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "count, events", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        }
    },
    "definitions": {
        "handlers.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "ok"},
                "feed_connected": {"type": "boolean"},
                "device_status": {"type": "string"},
                "command_sink": {"type": "string"}
            }
        },
        "handlers.ToggleResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "accepted"},
                "command": {"$ref": "#/definitions/models.ManualWaterCommand"},
                "state": {"$ref": "#/definitions/models.DashboardView"}
            }
        },
        "models.ManualWaterCommand": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "device_id": {"type": "string"},
                "active": {"type": "boolean"},
                "issued_at": {"type": "string"}
            }
        },
        "models.HistoryItem": {
            "type": "object",
            "properties": {
                "moisture": {"type": "number"},
                "recommendation": {"type": "string"},
                "timestamp": {"type": "string"},
                "color": {"type": "string"}
            }
        },
        "models.DashboardView": {
            "type": "object",
            "properties": {
                "moisture": {"type": "number"},
                "moisture_percent": {"type": "number"},
                "recommendation": {"type": "string"},
                "recommendation_text": {"type": "string"},
                "state_color": {"type": "string"},
                "status": {"type": "string"},
                "last_update": {"type": "string"},
                "servo_position": {"type": "integer"},
                "servo_status": {"type": "string"},
                "servo_color": {"type": "string"},
                "manual_active": {"type": "boolean"},
                "show_warning": {"type": "boolean"},
                "history": {"type": "array", "items": {"$ref": "#/definitions/models.HistoryItem"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Irrigation Dashboard API",
	Description:      "Soil-moisture dashboard with manual watering override.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
