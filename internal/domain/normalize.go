package domain

import (
	"strings"
	"unicode"
)

// CompactSpaces trims s and collapses every run of whitespace into a single
// space. Case, diacritics, hyphens and apostrophes are preserved.
func CompactSpaces(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if prevSpace {
				continue
			}
			prevSpace = true
			b.WriteByte(' ')
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// Normalized returns a copy of p with every text field compacted and the
// e-mail lowercased. Identificacion is only trimmed since it is the natural key.
func (p Patient) Normalized() Patient {
	p.Identificacion = strings.TrimSpace(p.Identificacion)
	for _, f := range []*string{
		&p.PrimerNombre, &p.SegundoNombre, &p.PrimerApellido, &p.SegundoApellido,
		&p.FechaNacimiento, &p.Sexo, &p.Telefono, &p.Departamento, &p.Ciudad,
		&p.EPS, &p.FechaIngreso, &p.Area, &p.Habitacion, &p.Diagnostico,
		&p.Alergias, &p.Medicamentos, &p.Motivo,
	} {
		*f = CompactSpaces(*f)
	}
	p.Correo = strings.ToLower(strings.TrimSpace(p.Correo))
	return p
}
