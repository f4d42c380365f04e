package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/pb33f/libopenapi"
)

// GenerateOpenAPISpec builds the OpenAPI 3 document of the gateway and
// validates it with libopenapi
func GenerateOpenAPISpec(baseURL, version string) ([]byte, error) {
	projectParam := pathParam("projectUuid", "Project UUID")

	spec := map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":       "semlayer API",
			"version":     version,
			"description": "Semantic viewer gateway for Cube and dbt Cloud semantic layers.",
		},
		"servers": []map[string]any{{"url": baseURL}},
		"components": map[string]any{
			"securitySchemes": map[string]any{
				"bearerAuth": map[string]any{"type": "http", "scheme": "bearer", "bearerFormat": "JWT"},
			},
			"schemas": schemas(),
		},
		"security": []map[string]any{{"bearerAuth": []string{}}},
		"paths": map[string]any{
			"/heartbeat": map[string]any{
				"get": operation("heartbeat", "Health check", nil, nil, okResponse(ref("Health"))),
			},
			"/api/v1/projects/{projectUuid}/semantic-layer/views": map[string]any{
				"get": operation("getViews", "List semantic layer views",
					[]any{projectParam}, nil, okResponse(arrayOf(ref("View")))),
			},
			"/api/v1/projects/{projectUuid}/semantic-layer/views/{view}/query-fields": map[string]any{
				"post": operation("getFields", "List fields of a view compatible with the selection",
					[]any{projectParam, pathParam("view", "View name")}, ref("SelectedFields"), okResponse(arrayOf(ref("Field")))),
			},
			"/api/v1/projects/{projectUuid}/semantic-layer/sql": map[string]any{
				"post": operation("getSql", "Compile a query to SQL",
					[]any{projectParam}, ref("Query"), okResponse(objectOf(map[string]any{"sql": str()}))),
			},
			"/api/v1/projects/{projectUuid}/semantic-layer/run": map[string]any{
				"post": operation("runQuery", "Schedule a job streaming the query results into a file",
					[]any{projectParam}, ref("RunQuery"), okResponse(objectOf(map[string]any{"jobId": str()}))),
			},
			"/api/v1/projects/{projectUuid}/semantic-layer/results/{fileId}": map[string]any{
				"get": map[string]any{
					"operationId": "getResults",
					"summary":     "Download a results file",
					"parameters":  []any{projectParam, pathParam("fileId", "Results file name")},
					"responses": map[string]any{
						"200": map[string]any{
							"description": "Results file",
							"content": map[string]any{
								"application/jsonl": map[string]any{"schema": str()},
								"text/csv":          map[string]any{"schema": str()},
							},
						},
						"default": errorResponse(),
					},
				},
			},
			"/api/v1/schedulers/job/{jobId}/status": map[string]any{
				"get": operation("getJobStatus", "Poll a scheduler job",
					[]any{pathParam("jobId", "Job id")}, nil, okResponse(ref("JobStatus"))),
			},
		},
	}

	specJSON, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal OpenAPI spec: %w", err)
	}

	document, err := libopenapi.NewDocument(specJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to create libopenapi document: %w", err)
	}
	if _, errs := document.BuildV3Model(); len(errs) > 0 {
		return nil, fmt.Errorf("failed to build v3 model (validation error): %w", errors.Join(errs...))
	}

	return specJSON, nil
}

// OpenAPIHandler serves the generated document, built once
func OpenAPIHandler(baseURL, version string) http.HandlerFunc {
	h := NewBaseHandler("http:docs")
	var (
		once sync.Once
		doc  []byte
		err  error
	)
	return func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { doc, err = GenerateOpenAPISpec(baseURL, version) })
		if err != nil {
			h.WriteError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(doc)
	}
}

func operation(id, summary string, params []any, body map[string]any, ok map[string]any) map[string]any {
	op := map[string]any{
		"operationId": id,
		"summary":     summary,
		"responses": map[string]any{
			"200":     ok,
			"default": errorResponse(),
		},
	}
	if len(params) > 0 {
		op["parameters"] = params
	}
	if body != nil {
		op["requestBody"] = map[string]any{
			"required": true,
			"content":  map[string]any{"application/json": map[string]any{"schema": body}},
		}
	}
	return op
}

func okResponse(results map[string]any) map[string]any {
	return map[string]any{
		"description": "Success",
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": objectOf(map[string]any{
					"status":  map[string]any{"type": "string", "enum": []string{"ok"}},
					"results": results,
				}),
			},
		},
	}
}

func errorResponse() map[string]any {
	return map[string]any{
		"description": "Error",
		"content": map[string]any{
			"application/json": map[string]any{"schema": ref("Error")},
		},
	}
}

func schemas() map[string]any {
	timeDimension := objectOf(map[string]any{"name": str(), "granularity": str()})
	filter := objectOf(map[string]any{
		"uuid":      str(),
		"fieldRef":  str(),
		"fieldKind": enum("dimension", "metric"),
		"operator":  enum("IS", "IS_NOT"),
		"values":    arrayOf(str()),
		"and":       arrayOf(ref("Filter")),
		"or":        arrayOf(ref("Filter")),
	})
	query := map[string]any{
		"dimensions":     arrayOf(str()),
		"timeDimensions": arrayOf(timeDimension),
		"metrics":        arrayOf(str()),
		"filters":        arrayOf(ref("Filter")),
		"sortBy": arrayOf(objectOf(map[string]any{
			"name":      str(),
			"kind":      enum("dimension", "metric"),
			"direction": enum("ASC", "DESC"),
		})),
		"limit":    map[string]any{"type": "integer", "minimum": 0, "maximum": 5000},
		"timezone": str(),
	}
	runQuery := map[string]any{"format": enum("jsonl", "csv")}
	for k, v := range query {
		runQuery[k] = v
	}

	return map[string]any{
		"Health": objectOf(map[string]any{"healthy": map[string]any{"type": "boolean"}, "version": str()}),
		"View": objectOf(map[string]any{
			"name": str(), "label": str(), "description": str(), "visible": map[string]any{"type": "boolean"},
		}),
		"Field": objectOf(map[string]any{
			"name": str(), "label": str(), "description": str(),
			"type":                   enum("string", "number", "boolean", "time"),
			"kind":                   enum("dimension", "metric"),
			"visible":                map[string]any{"type": "boolean"},
			"aggType":                str(),
			"availableGranularities": arrayOf(str()),
			"availableOperators":     arrayOf(str()),
		}),
		"SelectedFields": objectOf(map[string]any{
			"dimensions": arrayOf(str()), "timeDimensions": arrayOf(timeDimension), "metrics": arrayOf(str()),
		}),
		"Filter":   filter,
		"Query":    objectOf(query),
		"RunQuery": objectOf(runQuery),
		"JobStatus": objectOf(map[string]any{
			"jobId":  str(),
			"status": enum("scheduled", "started", "completed", "error"),
			"details": objectOf(map[string]any{
				"fileUrl": str(), "rowCount": map[string]any{"type": "integer"}, "error": str(),
			}),
			"createdAt": map[string]any{"type": "string", "format": "date-time"},
			"updatedAt": map[string]any{"type": "string", "format": "date-time"},
		}),
		"Error": objectOf(map[string]any{
			"status": enum("error"),
			"error": objectOf(map[string]any{
				"name": str(), "statusCode": map[string]any{"type": "integer"}, "message": str(),
			}),
		}),
	}
}

func pathParam(name, description string) map[string]any {
	return map[string]any{"name": name, "in": "path", "required": true, "description": description, "schema": str()}
}

func ref(name string) map[string]any {
	return map[string]any{"$ref": "#/components/schemas/" + name}
}

func str() map[string]any { return map[string]any{"type": "string"} }

func enum(values ...string) map[string]any {
	return map[string]any{"type": "string", "enum": values}
}

func arrayOf(items map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": items}
}

func objectOf(properties map[string]any) map[string]any {
	return map[string]any{"type": "object", "properties": properties}
}
