package command

import (
	"strconv"
	"strings"
)

// FieldType describes input type.
type FieldType int

const (
	FieldString FieldType = iota
	FieldInt
	FieldBool
	FieldStringList
)

// Field defines a CLI input field.
type Field struct {
	Name     string
	Prompt   string
	Type     FieldType
	Required bool
}

// Command defines a CLI command binding.
type Command struct {
	Service      string
	Action       string
	Method       string
	PathTemplate string
	RequiresAuth bool
	Fields       []Field
}

// RequestSpec is the built HTTP request.
type RequestSpec struct {
	Method string
	Path   string
	Body   []byte
}

// Params holds parsed input params.
type Params map[string]string

func (p Params) Get(key string) string {
	return p[strings.ToLower(key)]
}

func (p Params) Set(key, value string) {
	p[strings.ToLower(key)] = value
}

func (p Params) Has(key string) bool {
	_, ok := p[strings.ToLower(key)]
	return ok
}

func ParseInt(value string) (int, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 32)
	return int(n), err
}

func ParseBool(value string) (bool, error) {
	return strconv.ParseBool(strings.TrimSpace(value))
}

func ParseStringList(value string) []string {
	raw := strings.Split(value, ",")
	result := make([]string, 0, len(raw))
	for _, item := range raw {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}
