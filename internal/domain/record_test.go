package domain

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestNewLocalID_Format(t *testing.T) {
	t.Parallel()

	now := time.UnixMilli(1700000000123)
	id := NewLocalID(now)

	if !strings.HasPrefix(id, "local-1700000000123-") {
		t.Fatalf("unexpected prefix: %q", id)
	}
	if got := len(strings.TrimPrefix(id, "local-1700000000123-")); got != 9 {
		t.Fatalf("suffix length = %d, want 9", got)
	}
	if !IsLocalID(id) {
		t.Fatalf("IsLocalID(%q) = false", id)
	}
}

func TestNewLocalID_Unique(t *testing.T) {
	t.Parallel()

	now := time.Now()
	seen := make(map[string]struct{}, 1000)
	for range 1000 {
		id := NewLocalID(now)
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestIsLocalID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id   string
		want bool
	}{
		{"local-1700000000000-abc123xyz", true},
		{"42", false},
		{"local-abc-abc123xyz", false},
		{"local-1700000000000-short", false},
		{"local-1700000000000-ABC123XYZ", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsLocalID(tt.id); got != tt.want {
			t.Errorf("IsLocalID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestOperationType_Method(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ  OperationType
		want string
	}{
		{OperationCreate, http.MethodPost},
		{OperationUpdate, http.MethodPut},
		{OperationDelete, http.MethodDelete},
		{OperationType("PATCH"), ""},
	}
	for _, tt := range tests {
		if got := tt.typ.Method(); got != tt.want {
			t.Errorf("%s.Method() = %q, want %q", tt.typ, got, tt.want)
		}
		if got := tt.typ.IsValid(); got != (tt.want != "") {
			t.Errorf("%s.IsValid() = %v", tt.typ, got)
		}
	}
}

func TestPendingOperation_RecordID(t *testing.T) {
	t.Parallel()

	op := PendingOperation{Data: json.RawMessage(`{"id":"local-1-abcdefghi","identificacion":"9"}`)}
	id, ok := op.RecordID()
	if !ok || id != "local-1-abcdefghi" {
		t.Fatalf("RecordID() = %q, %v", id, ok)
	}

	for _, data := range []string{``, `{}`, `{"id":""}`, `not json`, `{"id":12}`} {
		op := PendingOperation{Data: json.RawMessage(data)}
		if _, ok := op.RecordID(); ok {
			t.Errorf("RecordID() for %q should be absent", data)
		}
	}
}

func validPatient() Patient {
	return Patient{
		Identificacion: "1020304050",
		PrimerNombre:   "Ana",
		PrimerApellido: "Restrepo",
		Sexo:           SexFemale,
		FechaIngreso:   "2024-03-01",
		Area:           "UCI",
		Motivo:         "Dolor torácico",
	}
}

func TestPatient_Validate_OK(t *testing.T) {
	t.Parallel()

	if err := validPatient().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPatient_Validate_MissingRequired(t *testing.T) {
	t.Parallel()

	err := Patient{}.Validate()

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
	if len(ve.Errors) != 7 {
		t.Fatalf("expected 7 field errors, got %d: %v", len(ve.Errors), ve.Errors)
	}
}

func TestPatient_Validate_BadValues(t *testing.T) {
	t.Parallel()

	p := validPatient()
	p.Sexo = "X"
	p.FechaIngreso = "01/03/2024"
	p.FechaNacimiento = "yesterday"

	var ve *ValidationError
	if !errors.As(p.Validate(), &ve) {
		t.Fatal("expected ValidationError")
	}
	fields := map[string]bool{}
	for _, fe := range ve.Errors {
		fields[fe.Field] = true
	}
	for _, f := range []string{"sexo", "fechaIngreso", "fechaNacimiento"} {
		if !fields[f] {
			t.Errorf("expected error for %s", f)
		}
	}
}
