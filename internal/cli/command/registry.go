package command

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Registry returns all CLI commands keyed by "service action".
func Registry() map[string]Command {
	commands := []Command{
		{
			Service:      "problem",
			Action:       "list",
			Method:       "GET",
			PathTemplate: "/api/v1/problems",
			Fields: []Field{
				{Name: "topic", Prompt: "topic", Type: FieldString},
				{Name: "difficulty", Prompt: "difficulty", Type: FieldString},
			},
		},
		{
			Service:      "problem",
			Action:       "get",
			Method:       "GET",
			PathTemplate: "/api/v1/problems/:id",
			Fields: []Field{
				{Name: "id", Prompt: "problem_id", Type: FieldInt, Required: true},
			},
		},
		{
			Service:      "problem",
			Action:       "add",
			Method:       "POST",
			PathTemplate: "/api/v1/problems",
			Fields: []Field{
				{Name: "title", Prompt: "title", Type: FieldString, Required: true},
				{Name: "url", Prompt: "url", Type: FieldString, Required: true},
				{Name: "topics", Prompt: "topics (comma-separated)", Type: FieldStringList},
				{Name: "difficulty", Prompt: "difficulty (Easy/Medium/Hard)", Type: FieldString},
				{Name: "hint", Prompt: "hint", Type: FieldString},
			},
		},
		{
			Service:      "problem",
			Action:       "update",
			Method:       "PUT",
			PathTemplate: "/api/v1/problems/:id",
			Fields: []Field{
				{Name: "id", Prompt: "problem_id", Type: FieldInt, Required: true},
				{Name: "title", Prompt: "title", Type: FieldString},
				{Name: "url", Prompt: "url", Type: FieldString},
				{Name: "topics", Prompt: "topics (comma-separated)", Type: FieldStringList},
				{Name: "difficulty", Prompt: "difficulty (Easy/Medium/Hard)", Type: FieldString},
				{Name: "hint", Prompt: "hint", Type: FieldString},
			},
		},
		{
			Service:      "problem",
			Action:       "delete",
			Method:       "DELETE",
			PathTemplate: "/api/v1/problems/:id",
			Fields: []Field{
				{Name: "id", Prompt: "problem_id", Type: FieldInt, Required: true},
			},
		},
		{
			Service:      "problem",
			Action:       "stats",
			Method:       "GET",
			PathTemplate: "/api/v1/problems/stats",
		},
		{
			Service:      "problem",
			Action:       "complete",
			Method:       "PUT",
			PathTemplate: "/api/v1/problems/:id/completion",
			Fields: []Field{
				{Name: "id", Prompt: "problem_id", Type: FieldInt, Required: true},
				{Name: "completed", Prompt: "completed (true/false)", Type: FieldBool, Required: true},
			},
		},
		{
			Service:      "problem",
			Action:       "retry",
			Method:       "PUT",
			PathTemplate: "/api/v1/problems/:id/retry",
			Fields: []Field{
				{Name: "id", Prompt: "problem_id", Type: FieldInt, Required: true},
				{Name: "marked", Prompt: "marked (true/false)", Type: FieldBool, Required: true},
			},
		},
		{
			Service:      "problem",
			Action:       "notes",
			Method:       "GET",
			PathTemplate: "/api/v1/problems/:id/notes",
			Fields: []Field{
				{Name: "id", Prompt: "problem_id", Type: FieldInt, Required: true},
			},
		},
		{
			Service:      "problem",
			Action:       "note-set",
			Method:       "PUT",
			PathTemplate: "/api/v1/problems/:id/notes",
			Fields: []Field{
				{Name: "id", Prompt: "problem_id", Type: FieldInt, Required: true},
				{Name: "text", Prompt: "text", Type: FieldString, Required: true},
			},
		},
		{
			Service:      "activity",
			Action:       "list",
			Method:       "GET",
			PathTemplate: "/api/v1/activities",
		},
		{
			Service:      "activity",
			Action:       "add",
			Method:       "POST",
			PathTemplate: "/api/v1/activities",
			Fields: []Field{
				{Name: "type", Prompt: "type", Type: FieldString, Required: true},
				{Name: "text", Prompt: "text", Type: FieldString, Required: true},
			},
		},
		{
			Service:      "session",
			Action:       "login",
			Method:       "POST",
			PathTemplate: "/api/v1/session/login",
			Fields: []Field{
				{Name: "token", Prompt: "identity token", Type: FieldString, Required: true},
			},
		},
		{
			Service:      "session",
			Action:       "logout",
			Method:       "POST",
			PathTemplate: "/api/v1/session/logout",
			RequiresAuth: true,
		},
		{
			Service:      "session",
			Action:       "status",
			Method:       "GET",
			PathTemplate: "/api/v1/session",
		},
		{
			Service:      "session",
			Action:       "sync",
			Method:       "POST",
			PathTemplate: "/api/v1/session/sync",
			RequiresAuth: true,
		},
	}

	result := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		result[fmt.Sprintf("%s %s", cmd.Service, cmd.Action)] = cmd
	}
	return result
}

// BuildRequest creates an HTTP request spec based on the command.
func BuildRequest(cmd Command, params Params) (RequestSpec, error) {
	path, err := buildPath(cmd.PathTemplate, params)
	if err != nil {
		return RequestSpec{}, err
	}

	if cmd.Method == "GET" {
		path = appendQuery(cmd, path, params)
		return RequestSpec{Method: cmd.Method, Path: path}, nil
	}
	if cmd.Method == "DELETE" {
		return RequestSpec{Method: cmd.Method, Path: path}, nil
	}

	payload, err := buildPayload(cmd, params)
	if err != nil {
		return RequestSpec{}, err
	}
	var body []byte
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			return RequestSpec{}, fmt.Errorf("marshal request body failed: %w", err)
		}
	}
	return RequestSpec{Method: cmd.Method, Path: path, Body: body}, nil
}

func buildPath(template string, params Params) (string, error) {
	path := template
	if strings.Contains(path, ":id") {
		value := params.Get("id")
		if value == "" {
			return "", fmt.Errorf("missing path parameter: id")
		}
		if _, err := ParseInt(value); err != nil {
			return "", fmt.Errorf("invalid problem id: %s", value)
		}
		path = strings.ReplaceAll(path, ":id", value)
	}
	return path, nil
}

func appendQuery(cmd Command, path string, params Params) string {
	query := url.Values{}
	for _, field := range cmd.Fields {
		if field.Name == "id" {
			continue
		}
		if value := params.Get(field.Name); value != "" {
			query.Set(field.Name, value)
		}
	}
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}

func buildPayload(cmd Command, params Params) (interface{}, error) {
	payload := map[string]interface{}{}
	for _, field := range cmd.Fields {
		if field.Name == "id" {
			continue
		}
		if !params.Has(field.Name) {
			continue
		}
		value := params.Get(field.Name)
		switch field.Type {
		case FieldBool:
			b, err := ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("invalid bool for %s: %s", field.Name, value)
			}
			payload[field.Name] = b
		case FieldInt:
			n, err := ParseInt(value)
			if err != nil {
				return nil, fmt.Errorf("invalid int for %s: %s", field.Name, value)
			}
			payload[field.Name] = n
		case FieldStringList:
			payload[field.Name] = ParseStringList(value)
		default:
			payload[field.Name] = value
		}
	}
	if len(payload) == 0 {
		return nil, nil
	}
	return payload, nil
}
