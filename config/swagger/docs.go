// Package swagger registers the OpenAPI description of the room API.
// Regenerate with: swag init -g main.go -o config/swagger
package swagger

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
        "/rooms": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["rooms"],
                "summary": "Create a room",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/models.RoomCreation"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/controllers.RoomCreated"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/controllers.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/controllers.ErrorResponse"}}
                }
            }
        },
        "/rooms/{code}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["rooms"],
                "summary": "Get a room",
                "parameters": [{"type": "string", "name": "code", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.RoomResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/controllers.ErrorResponse"}}
                }
            }
        },
        "/rooms/{code}/join": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["rooms"],
                "summary": "Join a room",
                "parameters": [
                    {"type": "string", "name": "code", "in": "path", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/models.RoomCreation"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.RoomJoined"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/controllers.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/controllers.ErrorResponse"}}
                }
            }
        },
        "/rooms/{code}/leave": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["rooms"],
                "summary": "Leave a room",
                "parameters": [
                    {"type": "string", "name": "code", "in": "path", "required": true},
                    {"in": "body", "name": "body", "schema": {"$ref": "#/definitions/models.RoomAction"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.RoomResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/controllers.ErrorResponse"}}
                }
            }
        },
        "/rooms/{code}/settings": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["rooms"],
                "summary": "Update the settings of a room (host only)",
                "parameters": [
                    {"type": "string", "name": "code", "in": "path", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/models.SettingsUpdate"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.RoomResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/controllers.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/controllers.ErrorResponse"}}
                }
            }
        },
        "/rooms/{code}/start": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["rooms"],
                "summary": "Start the game (host only)",
                "parameters": [
                    {"type": "string", "name": "code", "in": "path", "required": true},
                    {"in": "body", "name": "body", "schema": {"$ref": "#/definitions/models.RoomAction"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.RoomResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/controllers.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/controllers.ErrorResponse"}}
                }
            }
        },
        "/rooms/{code}/end": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["rooms"],
                "summary": "End the game (host only)",
                "parameters": [
                    {"type": "string", "name": "code", "in": "path", "required": true},
                    {"in": "body", "name": "body", "schema": {"$ref": "#/definitions/models.RoomAction"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.RoomResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/controllers.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/controllers.ErrorResponse"}}
                }
            }
        },
        "/admin/stats": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Room counts and pending cleanups",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/cleanup.Stats"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/controllers.ErrorResponse"}}
                }
            }
        },
        "/admin/cleanup": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Run the periodic sweep now",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/cleanup.SweepReport"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/controllers.ErrorResponse"}}
                }
            }
        },
        "/admin/rooms/{code}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Delete a room right away",
                "parameters": [{"type": "string", "name": "code", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/controllers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "models.RoomCreation": {
            "type": "object",
            "required": ["playerName"],
            "properties": {"playerName": {"type": "string", "maxLength": 50, "minLength": 1}}
        },
        "models.RoomAction": {
            "type": "object",
            "properties": {"playerId": {"type": "string"}}
        },
        "models.SettingsPatch": {
            "type": "object",
            "properties": {
                "maxPlayers": {"type": "integer", "minimum": 2},
                "roundTime": {"type": "integer"},
                "rounds": {"type": "integer", "minimum": 1}
            }
        },
        "models.SettingsUpdate": {
            "type": "object",
            "properties": {
                "playerId": {"type": "string"},
                "settings": {"$ref": "#/definitions/models.SettingsPatch"}
            }
        },
        "models.Settings": {
            "type": "object",
            "properties": {
                "maxPlayers": {"type": "integer"},
                "roundTime": {"type": "integer"},
                "rounds": {"type": "integer"}
            }
        },
        "models.PlayerView": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "isHost": {"type": "boolean"}
            }
        },
        "controllers.RoomResponse": {
            "type": "object",
            "properties": {
                "roomId": {"type": "string"},
                "roomCode": {"type": "string"},
                "hostId": {"type": "string"},
                "state": {"type": "string"},
                "settings": {"$ref": "#/definitions/models.Settings"},
                "players": {"type": "array", "items": {"$ref": "#/definitions/models.PlayerView"}}
            }
        },
        "controllers.RoomCreated": {
            "type": "object",
            "properties": {
                "roomId": {"type": "string"},
                "roomCode": {"type": "string"},
                "hostId": {"type": "string"},
                "state": {"type": "string"},
                "settings": {"$ref": "#/definitions/models.Settings"},
                "player": {"$ref": "#/definitions/models.PlayerView"}
            }
        },
        "controllers.RoomJoined": {
            "type": "object",
            "properties": {
                "roomId": {"type": "string"},
                "roomCode": {"type": "string"},
                "hostId": {"type": "string"},
                "state": {"type": "string"},
                "settings": {"$ref": "#/definitions/models.Settings"},
                "player": {"$ref": "#/definitions/models.PlayerView"},
                "players": {"type": "array", "items": {"$ref": "#/definitions/models.PlayerView"}}
            }
        },
        "controllers.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "cleanup.Stats": {
            "type": "object",
            "properties": {
                "totalRooms": {"type": "integer"},
                "roomsByState": {"type": "object", "additionalProperties": {"type": "integer"}},
                "scheduledCleanups": {"type": "integer"},
                "maxRooms": {"type": "integer"}
            }
        },
        "cleanup.SweepReport": {
            "type": "object",
            "properties": {
                "finished": {"type": "integer"},
                "idle": {"type": "integer"},
                "evicted": {"type": "integer"},
                "orphans": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Canvas Conspiracy Rooms API",
	Description:      "Room lifecycle service: lobbies, membership, game start/end and automatic cleanup",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
