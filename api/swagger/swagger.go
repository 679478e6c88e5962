package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Campus Timetable API",
        "description": "Schedule editing, conflict detection and hour accounting for campus timetables.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Auth", "description": "Authentication"},
        {"name": "Subjects", "description": "Subject catalog"},
        {"name": "Courses", "description": "Degree programs"},
        {"name": "Rooms", "description": "Room inventory"},
        {"name": "Teachers", "description": "Instructor roster"},
        {"name": "Offerings", "description": "Subject offerings per cohort"},
        {"name": "Schedules", "description": "Weekly timetables and conflict checks"},
        {"name": "Workload", "description": "Teacher unit load accounting"},
        {"name": "Exports", "description": "Schedule downloads"},
        {"name": "Grid", "description": "Canonical scheduling grid"},
        {"name": "Ops", "description": "Runtime status"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate and obtain an access token",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/schedules/validate-event": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Validate one candidate event placement",
                "responses": {
                    "200": {"description": "Assessment with conflicts and hour projection"}
                }
            }
        },
        "/schedules/conflict-context": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Schedules relevant to conflict checking for an academic year",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/schedules": {
            "get": {
                "tags": ["Schedules"],
                "summary": "List schedules",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Schedules"],
                "summary": "Create schedule",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Conflicts with other timetables"},
                    "422": {"description": "Subject hour budgets exceeded"}
                }
            }
        },
        "/workload/validate": {
            "post": {
                "tags": ["Workload"],
                "summary": "Check whether a teacher can absorb another subject",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/grid": {
            "get": {
                "tags": ["Grid"],
                "summary": "The canonical half-hour slot sequence and day list",
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
