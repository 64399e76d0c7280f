package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Campus Ops API",
        "description": "Campus operations backend: rosters, timetables, fees and gate entry control",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Operator authentication"},
        {"name": "Students", "description": "Student roster management"},
        {"name": "Classes", "description": "Class roster and schedule management"},
        {"name": "Timetable", "description": "Timetable slots and bulk generation"},
        {"name": "Fees", "description": "Billing, payments and receipts"},
        {"name": "Gate", "description": "Gate scan terminal"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Log in with username and password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate a refresh token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "classId", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Students"],
                "summary": "Create student",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes": {
            "get": {
                "tags": ["Classes"],
                "summary": "List classes",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Classes"],
                "summary": "Create class",
                "description": "Rejects the payload when the class schedule collides with another class in the same room.",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Room conflict"}
                }
            }
        },
        "/timetable/generate": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Generate a timetable batch",
                "description": "Validates every slot against stored entries and against the rest of the batch. A single conflict rejects the whole batch.",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Teacher or room conflict"}
                }
            }
        },
        "/gate/scan": {
            "post": {
                "tags": ["Gate"],
                "summary": "Resolve a scanned code to an entry decision",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GateScanRequest"}}
                ],
                "responses": {
                    "200": {"description": "SUCCESS or PARTIAL", "schema": {"$ref": "#/definitions/GateScanResult"}},
                    "403": {"description": "DEFAULTER, BLOCKED, NO_CLASS_TODAY, TOO_EARLY or TOO_LATE", "schema": {"$ref": "#/definitions/GateScanResult"}},
                    "404": {"description": "UNKNOWN", "schema": {"$ref": "#/definitions/GateScanResult"}},
                    "500": {"description": "ERROR", "schema": {"$ref": "#/definitions/GateScanResult"}}
                }
            }
        },
        "/gate/events": {
            "get": {
                "tags": ["Gate"],
                "summary": "List recent gate scan events",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payments": {
            "post": {
                "tags": ["Fees"],
                "summary": "Record a payment and issue its receipt",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/receipts/{id}/pdf": {
            "get": {
                "tags": ["Fees"],
                "summary": "Download a receipt as PDF",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF content"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "GateScanRequest": {
            "type": "object",
            "properties": {
                "code": {"type": "string"}
            }
        },
        "GateScanResult": {
            "type": "object",
            "properties": {
                "decision": {"type": "string", "enum": ["SUCCESS", "PARTIAL", "DEFAULTER", "BLOCKED", "NO_CLASS_TODAY", "TOO_EARLY", "TOO_LATE", "UNKNOWN", "ERROR"]},
                "message": {"type": "string"},
                "student": {"type": "object"},
                "session": {"type": "object"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "limit": {"type": "integer"},
                "total": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
