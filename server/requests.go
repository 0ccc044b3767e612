package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"
)

// ErrBadRequest marks a body that failed to parse or validate
var ErrBadRequest = errors.New("bad request")

// PreferencesRequest is the body of POST /api/preferences/{sessionId}
type PreferencesRequest struct {
	Name string `json:"name" jsonschema:"maxLength=100,description=Display name used in replies"`
}

// ChatRequest is the body of POST /api/chat
type ChatRequest struct {
	SessionID   string `json:"sessionId" jsonschema:"description=Id returned by /api/session/new"`
	Message     string `json:"message" jsonschema:"maxLength=8000"`
	StressLevel string `json:"stressLevel,omitempty" jsonschema:"description=Voice stress label: high moderate or low"`
}

// GenerateSchema reflects the JSON schema of T with every definition inlined
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	// gojsonschema understands drafts up to 7; the structure we emit is
	// compatible, so drop the 2020-12 marker
	schema.Version = ""
	schema.ID = ""
	return schema
}

// Schemas returns the reflected schema of every request body keyed by name
func Schemas() map[string]*jsonschema.Schema {
	return map[string]*jsonschema.Schema{
		"PreferencesRequest": GenerateSchema[PreferencesRequest](),
		"ChatRequest":        GenerateSchema[ChatRequest](),
	}
}

// Validator checks request bodies against their compiled schemas
type Validator struct {
	preferences *gojsonschema.Schema
	chat        *gojsonschema.Schema
}

func compile(schema *jsonschema.Schema) (*gojsonschema.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return compiled, nil
}

func NewValidator() (*Validator, error) {
	preferences, err := compile(GenerateSchema[PreferencesRequest]())
	if err != nil {
		return nil, err
	}
	chat, err := compile(GenerateSchema[ChatRequest]())
	if err != nil {
		return nil, err
	}
	return &Validator{preferences: preferences, chat: chat}, nil
}

// decode validates body against schema and unmarshals it into out
func decode(schema *gojsonschema.Schema, body []byte, out any) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		// Validate fails outright on malformed JSON
		return fmt.Errorf("%w: invalid JSON body", ErrBadRequest)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return fmt.Errorf("%w: %s", ErrBadRequest, strings.Join(problems, "; "))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

func (v *Validator) Preferences(body []byte) (*PreferencesRequest, error) {
	var req PreferencesRequest
	if err := decode(v.preferences, body, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (v *Validator) Chat(body []byte) (*ChatRequest, error) {
	var req ChatRequest
	if err := decode(v.chat, body, &req); err != nil {
		return nil, err
	}
	return &req, nil
}
