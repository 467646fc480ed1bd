package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "University Attendance API",
        "description": "Student attendance ledger, justification reviews and exam eligibility",
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
        {"name": "Absences", "description": "Absence ledger"},
        {"name": "Justifications", "description": "Justification review lifecycle"},
        {"name": "Eligibility", "description": "Exam eligibility verdicts"},
        {"name": "Exemptions", "description": "Administrative eligibility overrides"},
        {"name": "Courses", "description": "Course and roster reads"},
        {"name": "Thresholds", "description": "Absence threshold configuration"},
        {"name": "Dashboard", "description": "Aggregate course views"},
        {"name": "Exports", "description": "Rendered eligibility reports"},
        {"name": "Notifications", "description": "In-app notifications"},
        {"name": "Audit", "description": "Audit trail"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate a user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current user profile",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/absences": {
            "post": {
                "tags": ["Absences"],
                "summary": "Record an absence",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordAbsenceRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Protected record"}
                }
            }
        },
        "/enrollments/{enrollmentID}/absences": {
            "get": {
                "tags": ["Absences"],
                "summary": "List an enrollment's absences",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "enrollmentID", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/{enrollmentID}/sessions/{sessionID}/absence": {
            "delete": {
                "tags": ["Absences"],
                "summary": "Clear an absence",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "enrollmentID", "in": "path", "required": true, "type": "string"},
                    {"name": "sessionID", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Cleared"}
                }
            }
        },
        "/justifications": {
            "post": {
                "tags": ["Justifications"],
                "summary": "Submit a justification",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "absence_record_id", "in": "formData", "required": true, "type": "string"},
                    {"name": "comment", "in": "formData", "type": "string"},
                    {"name": "document", "in": "formData", "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already under review"}
                }
            }
        },
        "/justifications/{id}/decision": {
            "post": {
                "tags": ["Justifications"],
                "summary": "Decide a justification",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DecideJustificationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already decided"}
                }
            }
        },
        "/justifications/direct": {
            "post": {
                "tags": ["Justifications"],
                "summary": "Directly encode a justified absence",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "enrollment_id", "in": "formData", "required": true, "type": "string"},
                    {"name": "session_id", "in": "formData", "required": true, "type": "string"},
                    {"name": "kind", "in": "formData", "type": "string"},
                    {"name": "duration_hours", "in": "formData", "type": "number"},
                    {"name": "comment", "in": "formData", "type": "string"},
                    {"name": "document", "in": "formData", "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/{enrollmentID}/eligibility": {
            "get": {
                "tags": ["Eligibility"],
                "summary": "Current eligibility verdict",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "enrollmentID", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/{enrollmentID}/eligibility/recalculate": {
            "post": {
                "tags": ["Eligibility"],
                "summary": "Force an eligibility recalculation",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "enrollmentID", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/{enrollmentID}/exemption": {
            "post": {
                "tags": ["Exemptions"],
                "summary": "Grant an exemption",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "enrollmentID", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExemptionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Exemptions"],
                "summary": "Revoke an exemption",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "enrollmentID", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/thresholds/default": {
            "get": {
                "tags": ["Thresholds"],
                "summary": "Current system-wide threshold",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Thresholds"],
                "summary": "Update the system-wide threshold",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DefaultThresholdRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{courseID}": {
            "get": {
                "tags": ["Courses"],
                "summary": "Get a course",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "courseID", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{courseID}/enrollments": {
            "get": {
                "tags": ["Courses"],
                "summary": "List the enrollments of a course",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "courseID", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{courseID}/threshold": {
            "put": {
                "tags": ["Thresholds"],
                "summary": "Set or clear a course threshold override",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "courseID", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CourseThresholdRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboard/courses/{courseID}": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Eligibility overview for a course",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "courseID", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/courses/{courseID}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export a course eligibility report",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "courseID", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Report file"}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List notifications",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications/{id}/read": {
            "post": {
                "tags": ["Notifications"],
                "summary": "Mark a notification as read",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Marked"}
                }
            }
        },
        "/audit": {
            "get": {
                "tags": ["Audit"],
                "summary": "Audit entries for a subject",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "subject_type", "in": "query", "required": true, "type": "string"},
                    {"name": "subject_id", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "RecordAbsenceRequest": {
            "type": "object",
            "required": ["enrollment_id", "session_id", "kind"],
            "properties": {
                "enrollment_id": {"type": "string"},
                "session_id": {"type": "string"},
                "kind": {"type": "string", "enum": ["FULL_SESSION", "PARTIAL_HOURS", "FULL_DAY"]},
                "duration_hours": {"type": "number"},
                "override_reason": {"type": "string"}
            }
        },
        "DecideJustificationRequest": {
            "type": "object",
            "required": ["outcome"],
            "properties": {
                "outcome": {"type": "string", "enum": ["ACCEPT", "REJECT"]},
                "comment": {"type": "string"}
            }
        },
        "ExemptionRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"}
            }
        },
        "DefaultThresholdRequest": {
            "type": "object",
            "required": ["value"],
            "properties": {
                "value": {"type": "number"}
            }
        },
        "CourseThresholdRequest": {
            "type": "object",
            "properties": {
                "value": {"type": "number"}
            }
        },
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
