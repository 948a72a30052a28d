package wireschema

import (
	"encoding/json"
	"testing"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("failed to decode test fixture: %v", err)
	}
	return v
}

func TestValidateZoneReplyAcceptsWellFormedArray(t *testing.T) {
	raw := `[{"id":"z1","label":"Login","kind":"button","state":"enabled","confidence":0.9,"bounds":{"x":0,"y":0,"w":50,"h":20}}]`
	if err := ValidateZoneReply(decode(t, raw)); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestValidateZoneReplyAcceptsEmptyArray(t *testing.T) {
	if err := ValidateZoneReply(decode(t, `[]`)); err != nil {
		t.Errorf("unexpected validation error on an empty array: %v", err)
	}
}

func TestValidateZoneReplyRejectsNonArray(t *testing.T) {
	if err := ValidateZoneReply(decode(t, `{"not":"an array"}`)); err == nil {
		t.Error("expected a validation error for a non-array reply")
	}
}

func TestValidateZoneReplyRejectsWrongFieldType(t *testing.T) {
	raw := `[{"id":"z1","label":"Login","kind":"button","state":"enabled","confidence":"not-a-number","bounds":{"x":0,"y":0,"w":50,"h":20}}]`
	if err := ValidateZoneReply(decode(t, raw)); err == nil {
		t.Error("expected a validation error for a non-numeric confidence field")
	}
}

func TestValidatePlanReplyAcceptsWellFormedArray(t *testing.T) {
	raw := `[{"zone_id":"z1","action_type":"CLICK"}]`
	if err := ValidatePlanReply(decode(t, raw)); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestValidatePlanReplyRejectsNonArray(t *testing.T) {
	if err := ValidatePlanReply(decode(t, `"just a string"`)); err == nil {
		t.Error("expected a validation error for a non-array plan reply")
	}
}
