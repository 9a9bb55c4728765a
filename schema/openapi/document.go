package openapi

import (
	"fmt"
	"strings"
)

// document wraps the options schema in an OpenAPI document with a single
// operation that accepts it as the request body.
func (c config) document(root map[string]any) (map[string]any, error) {
	if root == nil {
		return nil, fmt.Errorf("openapi: root schema cannot be nil")
	}
	if !strings.HasPrefix(c.operation.Path, "/") {
		return nil, fmt.Errorf("openapi: operation path %q must start with /", c.operation.Path)
	}

	doc := map[string]any{
		"openapi": c.version,
		"info":    c.infoObject(),
	}
	body := root
	if c.component != "" {
		doc["components"] = map[string]any{
			"schemas": map[string]any{c.component: root},
		}
		body = map[string]any{"$ref": "#/components/schemas/" + c.component}
	}
	doc["paths"] = map[string]any{
		c.operation.Path: map[string]any{
			c.operation.Method: c.operationObject(body),
		},
	}
	return doc, nil
}

func (c config) infoObject() map[string]any {
	info := map[string]any{
		"title":   c.info.Title,
		"version": c.info.Version,
	}
	if c.info.Description != "" {
		info["description"] = c.info.Description
	}
	return info
}

func (c config) operationObject(body map[string]any) map[string]any {
	responses := make(map[string]any, len(c.responses))
	for status, description := range c.responses {
		responses[status] = map[string]any{"description": description}
	}
	op := map[string]any{
		"operationId": c.operation.ID,
		"requestBody": map[string]any{
			"required": true,
			"content": map[string]any{
				c.contentType: map[string]any{"schema": body},
			},
		},
		"responses": responses,
	}
	if c.operation.Summary != "" {
		op["summary"] = c.operation.Summary
	}
	return op
}
