// Package wireschema validates the JSON replies the Vision Analyzer and Task
// Planner receive from remote LLM providers before those replies reach
// parse_response, catching malformed payloads earlier than ad hoc field
// checks would.
package wireschema

import (
	"bytes"
	"fmt"

	invschema "github.com/invopop/jsonschema"
	schema "github.com/santhosh-tekuri/jsonschema/v5"
)

// zoneReplySchema and planReplySchema are generated once from the model
// types they describe, using invopop/jsonschema's reflector, and compiled
// once into validators with santhosh-tekuri/jsonschema.
var (
	zoneReplySchema *schema.Schema
	planReplySchema *schema.Schema
)

// zoneRecord mirrors the wire shape of one zone in a Vision Analyzer reply.
type zoneRecord struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	Kind       string  `json:"kind"`
	State      string  `json:"state"`
	Confidence float64 `json:"confidence"`
	Bounds     struct {
		X int `json:"x"`
		Y int `json:"y"`
		W int `json:"w"`
		H int `json:"h"`
	} `json:"bounds"`
	ParentID string `json:"parent_id,omitempty"`
}

// stepRecord mirrors the wire shape of one step in a Task Planner reply.
type stepRecord struct {
	ZoneID         string         `json:"zone_id"`
	ZoneLabel      string         `json:"zone_label,omitempty"`
	ActionType     string         `json:"action_type"`
	Parameters     map[string]any `json:"parameters,omitempty"`
	ExpectedChange string         `json:"expected_change,omitempty"`
	Description    string         `json:"description,omitempty"`
}

func init() {
	zoneReplySchema = mustCompile("zone_reply.json", reflectSchema(&[]zoneRecord{}))
	planReplySchema = mustCompile("plan_reply.json", reflectSchema(&[]stepRecord{}))
}

func reflectSchema(v any) []byte {
	r := &invschema.Reflector{}
	s := r.Reflect(v)
	b, err := s.MarshalJSON()
	if err != nil {
		panic(fmt.Sprintf("wireschema: marshal generated schema: %v", err))
	}
	return b
}

func mustCompile(name string, raw []byte) *schema.Schema {
	c := schema.NewCompiler()
	if err := c.AddResource(name, bytes.NewReader(raw)); err != nil {
		panic(fmt.Sprintf("wireschema: add resource %s: %v", name, err))
	}
	s, err := c.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("wireschema: compile %s: %v", name, err))
	}
	return s
}

// ValidateZoneReply checks that decoded (the result of json.Unmarshal into
// an any) matches the expected zone-list wire shape.
func ValidateZoneReply(decoded any) error {
	if err := zoneReplySchema.Validate(decoded); err != nil {
		return fmt.Errorf("wireschema: vision reply failed schema validation: %w", err)
	}
	return nil
}

// ValidatePlanReply checks that decoded matches the expected step-list wire
// shape.
func ValidatePlanReply(decoded any) error {
	if err := planReplySchema.Validate(decoded); err != nil {
		return fmt.Errorf("wireschema: plan reply failed schema validation: %w", err)
	}
	return nil
}
