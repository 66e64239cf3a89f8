package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "PaperDesk API",
        "description": "Team-scoped academic paper and reference management",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header",
            "description": "JWT access token, prefixed with \"Bearer \""
        }
    },
    "tags": [
        {"name": "Auth", "description": "Login, token refresh and session management"},
        {"name": "Users", "description": "Account registration and administration"},
        {"name": "Teams", "description": "Team and membership management"},
        {"name": "Categories", "description": "Global hierarchical paper categories"},
        {"name": "Reference Categories", "description": "Team-scoped reference category trees"},
        {"name": "Papers", "description": "Published papers, files, workload and exports"},
        {"name": "References", "description": "Reference documents and files"},
        {"name": "Journals", "description": "Journal registry and grade rankings"},
        {"name": "Files", "description": "Signed download link redemption"}
    ],
    "paths": {
        "/users": {
            "post": {
                "tags": ["Users"],
                "summary": "Register a new account",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/Envelope"}}, "409": {"description": "Username or email taken"}}
            },
            "get": {
                "tags": ["Users"],
                "summary": "List accounts (superuser only)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "is_active", "in": "query", "type": "boolean"},
                    {"name": "skip", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}, "403": {"description": "Forbidden"}}
            }
        },
        "/users/token": {
            "post": {
                "tags": ["Auth"],
                "summary": "Exchange credentials for a token pair",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}, "401": {"description": "Invalid credentials or inactive account"}}
            }
        },
        "/users/token/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate a refresh token",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshRequest"}}],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Expired or revoked token"}}
            }
        },
        "/users/logout": {
            "post": {
                "tags": ["Auth"],
                "summary": "Revoke the presented refresh token",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/users/change-password": {
            "post": {
                "tags": ["Auth"],
                "summary": "Change the current user's password",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "No Content"}, "401": {"description": "Wrong current password"}}
            }
        },
        "/users/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current authenticated user",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/users/{id}": {
            "get": {
                "tags": ["Users"],
                "summary": "Fetch a user (self or superuser)",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "patch": {
                "tags": ["Users"],
                "summary": "Update a user (self or superuser)",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}
            },
            "delete": {
                "tags": ["Users"],
                "summary": "Deactivate a user (superuser only)",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/teams": {
            "post": {
                "tags": ["Teams"],
                "summary": "Create a team; the creator becomes OWNER",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created"}, "409": {"description": "Name taken"}}
            },
            "get": {
                "tags": ["Teams"],
                "summary": "List teams visible to the caller",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/teams/{id}": {
            "get": {"tags": ["Teams"], "summary": "Team detail", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}}},
            "patch": {"tags": ["Teams"], "summary": "Rename or describe a team (admin)", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Teams"], "summary": "Delete a team and its scoped data (owner)", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"204": {"description": "No Content"}}}
        },
        "/teams/{id}/members": {
            "get": {"tags": ["Teams"], "summary": "List members with roles", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Teams"], "summary": "Add a member (admin)", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"201": {"description": "Created"}, "409": {"description": "Already a member"}}}
        },
        "/teams/{id}/members/{userID}": {
            "patch": {"tags": ["Teams"], "summary": "Change a member's role (owner for role changes involving ADMIN)", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}, {"name": "userID", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Teams"], "summary": "Remove a member or leave the team", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}, {"name": "userID", "in": "path", "required": true, "type": "integer"}], "responses": {"204": {"description": "No Content"}}}
        },
        "/categories": {
            "get": {"tags": ["Categories"], "summary": "List categories, optionally by parent", "security": [{"BearerAuth": []}], "parameters": [{"name": "parent_id", "in": "query", "type": "integer"}, {"name": "roots_only", "in": "query", "type": "boolean"}, {"name": "include_stats", "in": "query", "type": "boolean"}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Categories"], "summary": "Create a category (superuser)", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}, "409": {"description": "Sibling name taken"}}}
        },
        "/categories/{id}": {
            "get": {"tags": ["Categories"], "summary": "Category detail", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}}},
            "patch": {"tags": ["Categories"], "summary": "Rename or reparent a category (superuser)", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}, "400": {"description": "Cycle or self-parenting"}}},
            "delete": {"tags": ["Categories"], "summary": "Delete an empty leaf category (superuser)", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"204": {"description": "No Content"}, "400": {"description": "Category still has children or papers"}}}
        },
        "/categories/{id}/descendants": {
            "get": {"tags": ["Categories"], "summary": "IDs of the category and every descendant", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}}}
        },
        "/categories/{id}/ancestors": {
            "get": {"tags": ["Categories"], "summary": "Ancestor chain from parent to root", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}}}
        },
        "/reference-categories": {
            "get": {"tags": ["Reference Categories"], "summary": "List a team's reference categories", "security": [{"BearerAuth": []}], "parameters": [{"name": "team_id", "in": "query", "required": true, "type": "integer"}, {"name": "parent_id", "in": "query", "type": "integer"}, {"name": "include_stats", "in": "query", "type": "boolean"}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Reference Categories"], "summary": "Create a reference category (team admin)", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}}}
        },
        "/reference-categories/{id}": {
            "get": {"tags": ["Reference Categories"], "summary": "Reference category detail", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}}},
            "patch": {"tags": ["Reference Categories"], "summary": "Update a reference category (team admin)", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Reference Categories"], "summary": "Delete an empty leaf reference category (team admin)", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"204": {"description": "No Content"}}}
        },
        "/reference-categories/{id}/descendants": {
            "get": {"tags": ["Reference Categories"], "summary": "IDs of the category and every descendant", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}}}
        },
        "/reference-categories/{id}/ancestors": {
            "get": {"tags": ["Reference Categories"], "summary": "Ancestor chain from parent to root", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}}}
        },
        "/papers": {
            "post": {"tags": ["Papers"], "summary": "Create a paper with authors and keywords", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}, "409": {"description": "Duplicate DOI"}}},
            "get": {
                "tags": ["Papers"],
                "summary": "List papers visible to the caller",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "title", "in": "query", "type": "string"},
                    {"name": "category_id", "in": "query", "type": "integer", "description": "Includes all descendant categories"},
                    {"name": "author_name", "in": "query", "type": "string"},
                    {"name": "keyword", "in": "query", "type": "string"},
                    {"name": "journal_id", "in": "query", "type": "integer"},
                    {"name": "team_id", "in": "query", "type": "integer"},
                    {"name": "date_from", "in": "query", "type": "string", "format": "date"},
                    {"name": "date_to", "in": "query", "type": "string", "format": "date"},
                    {"name": "skip", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}
            }
        },
        "/papers/{id}": {
            "get": {"tags": ["Papers"], "summary": "Paper detail with authors and keywords", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}}},
            "patch": {"tags": ["Papers"], "summary": "Update a paper (creator or superuser)", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Papers"], "summary": "Delete a paper and its stored file", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"204": {"description": "No Content"}}}
        },
        "/papers/{id}/upload": {
            "post": {
                "tags": ["Papers"],
                "summary": "Attach a PDF to a paper, replacing any prior file",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}, {"name": "file", "in": "formData", "required": true, "type": "file"}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Not a PDF or too large"}}
            }
        },
        "/papers/{id}/download": {
            "get": {"tags": ["Papers"], "summary": "Download the stored PDF", "security": [{"BearerAuth": []}], "produces": ["application/pdf"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "File stream"}, "404": {"description": "No stored file"}}}
        },
        "/papers/{id}/download-url": {
            "get": {"tags": ["Papers"], "summary": "Short-lived signed download token", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}}}
        },
        "/papers/{id}/workload": {
            "get": {"tags": ["Papers"], "summary": "Per-author workload scores for one paper", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}}}
        },
        "/papers/download/by-title": {
            "get": {"tags": ["Papers"], "summary": "Download a paper's PDF located by exact title", "security": [{"BearerAuth": []}], "parameters": [{"name": "title", "in": "query", "required": true, "type": "string"}, {"name": "team_id", "in": "query", "type": "integer"}], "responses": {"200": {"description": "File stream"}, "404": {"description": "No match or no stored file"}}}
        },
        "/papers/authors": {
            "get": {"tags": ["Papers"], "summary": "List the author registry", "security": [{"BearerAuth": []}], "parameters": [{"name": "search", "in": "query", "type": "string"}, {"name": "skip", "in": "query", "type": "integer"}, {"name": "limit", "in": "query", "type": "integer"}], "responses": {"200": {"description": "OK"}}}
        },
        "/papers/authors/{author_id}": {
            "get": {"tags": ["Papers"], "summary": "Get one author", "security": [{"BearerAuth": []}], "parameters": [{"name": "author_id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Unknown author"}}}
        },
        "/papers/authors/workload/by-name": {
            "get": {"tags": ["Papers"], "summary": "An author's workload across all their papers", "security": [{"BearerAuth": []}], "parameters": [{"name": "name", "in": "query", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Unknown author"}}}
        },
        "/papers/authors/collaboration-network": {
            "get": {"tags": ["Papers"], "summary": "Co-authorship graph with weighted edges", "security": [{"BearerAuth": []}], "parameters": [{"name": "team_id", "in": "query", "type": "integer"}], "responses": {"200": {"description": "OK"}}}
        },
        "/papers/export/excel": {
            "get": {"tags": ["Papers"], "summary": "Export visible papers as XLSX or CSV", "security": [{"BearerAuth": []}], "parameters": [{"name": "format", "in": "query", "type": "string", "enum": ["excel", "csv", "pdf"]}], "responses": {"200": {"description": "Spreadsheet stream"}}}
        },
        "/references": {
            "post": {"tags": ["References"], "summary": "Create a team or public reference", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}, "409": {"description": "Duplicate DOI"}}},
            "get": {
                "tags": ["References"],
                "summary": "List references visible to the caller, public ones included",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "title", "in": "query", "type": "string"},
                    {"name": "category_id", "in": "query", "type": "integer"},
                    {"name": "keyword", "in": "query", "type": "string"},
                    {"name": "journal_id", "in": "query", "type": "integer"},
                    {"name": "team_id", "in": "query", "type": "integer"},
                    {"name": "publication_year", "in": "query", "type": "integer"},
                    {"name": "skip", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}
            }
        },
        "/references/download/by-title": {
            "get": {"tags": ["References"], "summary": "Download a reference's PDF located by exact title", "security": [{"BearerAuth": []}], "parameters": [{"name": "title", "in": "query", "required": true, "type": "string"}, {"name": "team_id", "in": "query", "type": "integer"}], "responses": {"200": {"description": "File stream"}, "404": {"description": "No match or no stored file"}}}
        },
        "/references/{id}": {
            "get": {"tags": ["References"], "summary": "Reference detail", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}}},
            "patch": {"tags": ["References"], "summary": "Update a reference (creator, team admin or superuser)", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["References"], "summary": "Delete a reference and its stored file", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"204": {"description": "No Content"}}}
        },
        "/references/{id}/upload": {
            "post": {
                "tags": ["References"],
                "summary": "Attach a PDF to a reference, replacing any prior file",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}, {"name": "file", "in": "formData", "required": true, "type": "file"}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Not a PDF or too large"}}
            }
        },
        "/references/{id}/download": {
            "get": {"tags": ["References"], "summary": "Download the stored PDF", "security": [{"BearerAuth": []}], "produces": ["application/pdf"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "File stream"}, "404": {"description": "No stored file"}}}
        },
        "/references/{id}/download-url": {
            "get": {"tags": ["References"], "summary": "Short-lived signed download token", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}}}
        },
        "/references/export/excel": {
            "get": {"tags": ["References"], "summary": "Export visible references as XLSX or CSV", "security": [{"BearerAuth": []}], "parameters": [{"name": "format", "in": "query", "type": "string", "enum": ["excel", "csv", "pdf"]}], "responses": {"200": {"description": "Spreadsheet stream"}}}
        },
        "/files/download": {
            "get": {"tags": ["Files"], "summary": "Redeem a signed download token", "parameters": [{"name": "token", "in": "query", "required": true, "type": "string"}], "responses": {"200": {"description": "File stream"}, "401": {"description": "Invalid or expired token"}}}
        },
        "/journals": {
            "post": {"tags": ["Journals"], "summary": "Register a journal (superuser)", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}, "409": {"description": "Name taken"}}},
            "get": {"tags": ["Journals"], "summary": "List journals", "security": [{"BearerAuth": []}], "parameters": [{"name": "name", "in": "query", "type": "string"}, {"name": "grade", "in": "query", "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/journals/search": {
            "get": {"tags": ["Journals"], "summary": "Name search, two characters minimum", "security": [{"BearerAuth": []}], "parameters": [{"name": "q", "in": "query", "required": true, "type": "string"}, {"name": "limit", "in": "query", "type": "integer"}], "responses": {"200": {"description": "OK"}, "400": {"description": "Query too short"}}}
        },
        "/journals/grades/list": {
            "get": {"tags": ["Journals"], "summary": "Recognized grades with workload scores", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/journals/{id}": {
            "get": {"tags": ["Journals"], "summary": "Journal detail", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}}},
            "patch": {"tags": ["Journals"], "summary": "Update a journal (superuser)", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Journals"], "summary": "Delete an unused journal (superuser)", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"204": {"description": "No Content"}, "400": {"description": "Journal still referenced"}}}
        }
    },
    "definitions": {
        "RegisterRequest": {
            "type": "object",
            "required": ["username", "email", "password", "full_name"],
            "properties": {
                "username": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string", "minLength": 8},
                "full_name": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "RefreshRequest": {
            "type": "object",
            "required": ["refresh_token"],
            "properties": {
                "refresh_token": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "skip": {"type": "integer"},
                "limit": {"type": "integer"}
            }
        },
        "Envelope": {
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
