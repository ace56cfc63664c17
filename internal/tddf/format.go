package tddf

import (
	"fmt"
	"strings"
	"time"
)

// Format renders values into a fixed-width line laid out by the schema. The
// record identifier is always the schema code. Missing fields are blank.
func (s *Schema) Format(values map[string]any) (string, error) {
	line := []byte(strings.Repeat(" ", s.Width()))

	for _, f := range s.Fields {
		v, ok := values[f.Name]
		if f.Name == FieldRecordIdentifier {
			v, ok = s.Code, true
		}
		if !ok {
			continue
		}

		text, err := formatValue(f, v)
		if err != nil {
			return "", fmt.Errorf("field %q: %w", f.Name, err)
		}
		if len(text) > f.Length {
			return "", fmt.Errorf("field %q: value %q exceeds %d characters", f.Name, text, f.Length)
		}

		copy(line[f.Start:f.end()], text)
	}

	return string(line), nil
}

func formatValue(f FieldSpec, v any) (string, error) {
	switch val := v.(type) {
	case string:
		return pad(f, val), nil
	case Decimal:
		return formatDecimal(f, val)
	case int:
		return formatDecimal(f, Decimal{Units: int64(val) * pow10(f.Scale), Scale: f.Scale})
	case Date:
		return val.Format(f.Layout.goLayout()), nil
	case time.Time:
		return val.Format(f.Layout.goLayout()), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

func formatDecimal(f FieldSpec, d Decimal) (string, error) {
	if d.Scale != f.Scale {
		return "", fmt.Errorf("scale %d does not match field scale %d", d.Scale, f.Scale)
	}

	digits, neg := d.digits()
	width := f.Length
	if neg {
		width--
	}
	if len(digits) > width {
		return "", fmt.Errorf("value %s exceeds %d digits", d, width)
	}

	digits = strings.Repeat("0", width-len(digits)) + digits
	if neg {
		digits = "-" + digits
	}

	return digits, nil
}

func pad(f FieldSpec, s string) string {
	if len(s) >= f.Length {
		return s
	}

	return s + strings.Repeat(" ", f.Length-len(s))
}

func pow10(n int) int64 {
	p := int64(1)
	for range n {
		p *= 10
	}

	return p
}
