package domain

import (
	"strings"
	"time"
)

// Sex values accepted by the ward intake form.
const (
	SexMale   = "Masculino"
	SexFemale = "Femenino"
)

// Patient is the intake payload captured by the ward front-end and posted to
// the remote API. JSON field names follow the remote API contract.
type Patient struct {
	Identificacion  string `json:"identificacion"`
	PrimerNombre    string `json:"primerNombre"`
	SegundoNombre   string `json:"segundoNombre,omitempty"`
	PrimerApellido  string `json:"primerApellido"`
	SegundoApellido string `json:"segundoApellido,omitempty"`
	Edad            *int   `json:"edad,omitempty"`
	FechaNacimiento string `json:"fechaNacimiento,omitempty"`
	Sexo            string `json:"sexo"`
	Telefono        string `json:"telefono,omitempty"`
	Correo          string `json:"correo,omitempty"`
	Departamento    string `json:"departamento,omitempty"`
	Ciudad          string `json:"ciudad,omitempty"`
	EPS             string `json:"eps,omitempty"`
	FechaIngreso    string `json:"fechaIngreso"`
	Area            string `json:"area"`
	Habitacion      string `json:"habitacion,omitempty"`
	Diagnostico     string `json:"diagnostico,omitempty"`
	Alergias        string `json:"alergias,omitempty"`
	Medicamentos    string `json:"medicamentos,omitempty"`
	Motivo          string `json:"motivo"`
}

// Validate checks the fields the remote API rejects when missing and
// collects all errors.
func (p Patient) Validate() error {
	var errs []FieldError

	required := []struct {
		field string
		value string
	}{
		{"identificacion", p.Identificacion},
		{"primerNombre", p.PrimerNombre},
		{"primerApellido", p.PrimerApellido},
		{"sexo", p.Sexo},
		{"fechaIngreso", p.FechaIngreso},
		{"area", p.Area},
		{"motivo", p.Motivo},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, FieldError{Field: r.field, Message: "required"})
		}
	}

	if p.Sexo != "" && p.Sexo != SexMale && p.Sexo != SexFemale {
		errs = append(errs, FieldError{Field: "sexo", Message: "must be Masculino or Femenino"})
	}
	if p.FechaIngreso != "" {
		if _, err := time.Parse(time.DateOnly, p.FechaIngreso); err != nil {
			errs = append(errs, FieldError{Field: "fechaIngreso", Message: "must be yyyy-mm-dd"})
		}
	}
	if p.FechaNacimiento != "" {
		if _, err := time.Parse(time.DateOnly, p.FechaNacimiento); err != nil {
			errs = append(errs, FieldError{Field: "fechaNacimiento", Message: "must be yyyy-mm-dd"})
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
