package tddf

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

var errInvalidNumber = errors.New("invalid number")

// Decimal is a signed fixed-point number: Units scaled by 10^Scale.
type Decimal struct {
	Units int64
	Scale int
}

// ParseDecimal parses digits with an implied decimal scale. A sign may lead or
// trail the digits; an explicit decimal point is accepted when it carries no
// more than scale fractional digits.
func ParseDecimal(raw string, scale int) (Decimal, error) {
	s := strings.TrimSpace(raw)
	neg := false

	switch {
	case strings.HasPrefix(s, "-"):
		neg, s = true, s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	case strings.HasSuffix(s, "-"):
		neg, s = true, s[:len(s)-1]
	case strings.HasSuffix(s, "+"):
		s = s[:len(s)-1]
	}

	digits := s
	if whole, frac, ok := strings.Cut(s, "."); ok {
		if len(frac) > scale {
			return Decimal{}, errInvalidNumber
		}
		digits = whole + frac + strings.Repeat("0", scale-len(frac))
	}

	if digits == "" || strings.TrimLeft(digits, "0123456789") != "" {
		return Decimal{}, errInvalidNumber
	}

	units, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return Decimal{}, errInvalidNumber
	}

	if neg {
		units = -units
	}

	return Decimal{Units: units, Scale: scale}, nil
}

func (d Decimal) String() string {
	if d.Scale <= 0 {
		return strconv.FormatInt(d.Units, 10)
	}

	units := d.Units
	sign := ""
	if units < 0 {
		sign, units = "-", -units
	}

	s := strconv.FormatInt(units, 10)
	if len(s) <= d.Scale {
		s = strings.Repeat("0", d.Scale-len(s)+1) + s
	}

	return sign + s[:len(s)-d.Scale] + "." + s[len(s)-d.Scale:]
}

func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(d.String()), nil
}

// digits renders the unscaled magnitude, as written in a fixed-width field.
func (d Decimal) digits() (string, bool) {
	if d.Units < 0 {
		return strconv.FormatInt(-d.Units, 10), true
	}

	return strconv.FormatInt(d.Units, 10), false
}

// DateLayout is the digit order of an 8 character date field.
type DateLayout string

const (
	LayoutMMDDYYYY DateLayout = "MMDDYYYY"
	LayoutYYYYMMDD DateLayout = "YYYYMMDD"
)

func (l DateLayout) goLayout() string {
	if l == LayoutYYYYMMDD {
		return "20060102"
	}

	return "01022006"
}

// Date is a calendar date without time of day.
type Date struct {
	time.Time
}

func ParseDate(raw string, layout DateLayout) (Date, error) {
	t, err := time.Parse(layout.goLayout(), strings.TrimSpace(raw))
	if err != nil {
		return Date{}, err
	}

	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(time.DateOnly)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}
