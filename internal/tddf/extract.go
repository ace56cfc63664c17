package tddf

import (
	"fmt"
	"strings"
)

const (
	DegradeTruncated = "truncated"
	DegradeNumeric   = "invalid_numeric"
	DegradeDate      = "invalid_date"
)

// Degradation records a field that fell back to a default during extraction.
// It is not an error: the record is still produced.
type Degradation struct {
	Field  string
	Raw    string
	Reason string
}

func (d Degradation) String() string {
	return fmt.Sprintf("%s: %s (%q)", d.Field, d.Reason, d.Raw)
}

// Record is the decoded form of one line.
type Record struct {
	Code         string
	Schema       string
	Fields       map[string]any
	Degradations []Degradation
}

// Extract slices and coerces every field of the schema from line. Each field
// is best effort: a truncated field is omitted, a field that cannot be coerced
// keeps its trimmed text, and blank numeric or date fields are omitted.
func (s *Schema) Extract(line string) Record {
	rec := Record{
		Code:   s.Code,
		Schema: s.Name,
		Fields: make(map[string]any, len(s.Fields)),
	}

	for _, f := range s.Fields {
		if len(line) < f.end() {
			rec.degrade(f.Name, "", DegradeTruncated)
			continue
		}

		raw := strings.TrimSpace(line[f.Start:f.end()])

		switch f.Coercion {
		case CoerceNumeric:
			if raw == "" {
				continue
			}
			d, err := ParseDecimal(raw, f.Scale)
			if err != nil {
				rec.Fields[f.Name] = raw
				rec.degrade(f.Name, raw, DegradeNumeric)
				continue
			}
			rec.Fields[f.Name] = d

		case CoerceDate:
			if raw == "" {
				continue
			}
			d, err := ParseDate(raw, f.Layout)
			if err != nil {
				rec.Fields[f.Name] = raw
				rec.degrade(f.Name, raw, DegradeDate)
				continue
			}
			rec.Fields[f.Name] = d

		default:
			rec.Fields[f.Name] = raw
		}
	}

	return rec
}

func (r *Record) degrade(field, raw, reason string) {
	r.Degradations = append(r.Degradations, Degradation{Field: field, Raw: raw, Reason: reason})
}
