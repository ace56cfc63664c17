package tddf

import "strings"

const (
	RecordTypeOffset = 17
	RecordTypeLength = 2

	// Unclassifiable is the record type of a line too short to carry one.
	Unclassifiable = "XX"
)

type Kind int

const (
	KindUnrecognized Kind = iota
	KindProcessable
	KindExtension
)

func (k Kind) String() string {
	switch k {
	case KindProcessable:
		return "processable"
	case KindExtension:
		return "extension"
	default:
		return "unrecognized"
	}
}

type Classification struct {
	Code   string
	Kind   Kind
	Schema *Schema
}

// Processable reports whether the line should be fully decoded.
func (c Classification) Processable() bool {
	return c.Kind == KindProcessable && c.Schema != nil
}

// Classifier maps lines to record types. Classification is per line and needs
// no context from neighbouring lines.
type Classifier struct {
	registry *Registry
	offset   int
}

func NewClassifier(registry *Registry) *Classifier {
	return &Classifier{
		registry: registry,
		offset:   RecordTypeOffset,
	}
}

// RecordType extracts the record identifier at the standard offset.
func RecordType(line string) string {
	return recordTypeAt(line, RecordTypeOffset)
}

func recordTypeAt(line string, offset int) string {
	if len(line) < offset+RecordTypeLength {
		return Unclassifiable
	}

	code := line[offset : offset+RecordTypeLength]
	if strings.TrimSpace(code) == "" {
		return Unclassifiable
	}

	return code
}

func (c *Classifier) Classify(line string) Classification {
	return c.ClassifyCode(recordTypeAt(line, c.offset))
}

// ClassifyCode classifies an already extracted record type.
func (c *Classifier) ClassifyCode(code string) Classification {
	entry, ok := c.registry.Lookup(code)
	if !ok {
		return Classification{Code: code, Kind: KindUnrecognized}
	}

	if !entry.Processable {
		return Classification{Code: code, Kind: KindExtension, Schema: SchemaFor(code)}
	}

	return Classification{Code: code, Kind: KindProcessable, Schema: SchemaFor(code)}
}
