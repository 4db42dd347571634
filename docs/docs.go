// Package docs registers the OpenAPI description served at /v1/docs.
// Regenerate with: swag init -g cmd/api/main.go -o docs
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
        "/markets": {
            "get": {
                "description": "Geographic search when lat/lng (or address) is given, text search otherwise.\nResults are capped; total is the count before capping and limited tells whether the cap applied.",
                "produces": ["application/json"],
                "tags": ["markets"],
                "summary": "Search markets",
                "parameters": [
                    {"type": "number", "description": "Latitude in decimal degrees", "name": "lat", "in": "query"},
                    {"type": "number", "description": "Longitude in decimal degrees", "name": "lng", "in": "query"},
                    {"type": "number", "description": "Radius in km (default 20)", "name": "radius", "in": "query"},
                    {"type": "string", "description": "Free-form address, geocoded to a center point", "name": "address", "in": "query"},
                    {"type": "string", "description": "Fragment matched against name, town and zip prefix", "name": "search", "in": "query"},
                    {"type": "string", "description": "Town fragment (used when search is empty)", "name": "town", "in": "query"},
                    {"type": "string", "description": "Zip prefix (used when search is empty)", "name": "zip", "in": "query"},
                    {"type": "string", "description": "Weekday token, e.g. SAMEDI", "name": "day", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/search.Result"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/markets/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["markets"],
                "summary": "Get market by ID",
                "parameters": [{"type": "integer", "description": "Market ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Market"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/geocode": {
            "get": {
                "produces": ["application/json"],
                "tags": ["geocode"],
                "summary": "Resolve an address to coordinates",
                "parameters": [{"type": "string", "description": "Address", "name": "q", "in": "query", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.GeocodeResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "details": {"type": "array", "items": {"type": "string"}}
            }
        },
        "handlers.GeocodeResponse": {
            "type": "object",
            "properties": {
                "lat": {"type": "number"},
                "lng": {"type": "number"},
                "label": {"type": "string"}
            }
        },
        "models.Opening": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "marketId": {"type": "integer"},
                "day": {"type": "string", "enum": ["LUNDI", "MARDI", "MERCREDI", "JEUDI", "VENDREDI", "SAMEDI", "DIMANCHE"]},
                "startTime": {"type": "string", "example": "07:00"},
                "endTime": {"type": "string", "example": "13:30"}
            }
        },
        "models.Market": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "externalRef": {"type": "string"},
                "name": {"type": "string"},
                "street": {"type": "string"},
                "town": {"type": "string"},
                "zip": {"type": "string"},
                "lat": {"type": "number"},
                "lng": {"type": "number"},
                "description": {"type": "string"},
                "openings": {"type": "array", "items": {"$ref": "#/definitions/models.Opening"}}
            }
        },
        "search.Hit": {
            "type": "object",
            "allOf": [{"$ref": "#/definitions/models.Market"}],
            "properties": {
                "distanceKm": {"type": "number"}
            }
        },
        "search.Result": {
            "type": "object",
            "properties": {
                "markets": {"type": "array", "items": {"$ref": "#/definitions/search.Hit"}},
                "total": {"type": "integer"},
                "limited": {"type": "boolean"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/v1",
	Schemes:          []string{},
	Title:            "marchelocal API",
	Description:      "Local markets, their vendors and what they sell",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
