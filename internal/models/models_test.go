package models

import (
	"reflect"
	"strings"
	"testing"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

// assertFieldType checks that a struct field has the expected Go type.
func assertFieldType(t *testing.T, typ reflect.Type, fieldName, expectedType string) {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	got := f.Type.String()
	if got != expectedType {
		t.Errorf("%s.%s type = %q, want %q", typ.Name(), fieldName, got, expectedType)
	}
}

func TestMaintenanceWorkflow_Fields(t *testing.T) {
	typ := reflect.TypeOf(MaintenanceWorkflow{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "ID", "size:32")
	assertGormTag(t, typ, "AnomalyID", "uniqueIndex")
	assertGormTag(t, typ, "Title", "not null")
	assertGormTag(t, typ, "Status", "default:pending")
	assertGormTag(t, typ, "Status", "index")
	assertGormTag(t, typ, "Priority", "default:medium")

	assertFieldType(t, typ, "TemplateID", "*string")
	assertFieldType(t, typ, "ActualDuration", "*int")
	assertFieldType(t, typ, "StartedAt", "*time.Time")
	assertFieldType(t, typ, "CompletedAt", "*time.Time")
}

func TestMaintenanceAction_Fields(t *testing.T) {
	typ := reflect.TypeOf(MaintenanceAction{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "WorkflowID", "index")
	assertGormTag(t, typ, "Status", "default:pending")
	assertGormTag(t, typ, "Type", "default:execution")
	assertGormTag(t, typ, "ResourcesNeeded", "type:json")
	assertGormTag(t, typ, "SafetyRequirements", "type:json")

	assertFieldType(t, typ, "ActualDuration", "*int")
	assertFieldType(t, typ, "DueAt", "*time.Time")
	assertFieldType(t, typ, "StartedAt", "*time.Time")
	assertFieldType(t, typ, "CompletedAt", "*time.Time")
	assertFieldType(t, typ, "Position", "int")
	assertFieldType(t, typ, "ProgressPercentage", "int")
}

func TestActionDep_CompositeKey(t *testing.T) {
	typ := reflect.TypeOf(ActionDep{})
	assertGormTag(t, typ, "ActionID", "primaryKey")
	assertGormTag(t, typ, "DependsOn", "primaryKey")
}

func TestMaintenanceCheckpoint_Fields(t *testing.T) {
	typ := reflect.TypeOf(MaintenanceCheckpoint{})
	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "ActionID", "index")
	assertFieldType(t, typ, "Completed", "bool")
	assertFieldType(t, typ, "CompletedAt", "*time.Time")
}

func TestEncodeDecodeStrings(t *testing.T) {
	cases := []struct {
		name  string
		items []string
	}{
		{"nil", nil},
		{"empty", []string{}},
		{"single", []string{"torque wrench"}},
		{"multi", []string{"harness", "gloves", "lockout kit"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			encoded := EncodeStrings(tc.items)
			if len(tc.items) == 0 {
				if encoded != "" {
					t.Errorf("EncodeStrings(%v) = %q, want empty", tc.items, encoded)
				}
				return
			}
			decoded := DecodeStrings(encoded)
			if !reflect.DeepEqual(decoded, tc.items) {
				t.Errorf("round trip = %v, want %v", decoded, tc.items)
			}
		})
	}
}

func TestDecodeStrings_Malformed(t *testing.T) {
	if got := DecodeStrings("{not json"); got != nil {
		t.Errorf("DecodeStrings on malformed input = %v, want nil", got)
	}
}
