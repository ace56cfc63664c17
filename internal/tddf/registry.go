package tddf

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/jszwec/csvutil"
)

// Entry describes one registered record type.
type Entry struct {
	Code        string `csv:"code"`
	Name        string `csv:"name"`
	Processable bool   `csv:"processable"`
}

type Registry struct {
	entries map[string]Entry
}

func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{entries: make(map[string]Entry, len(entries))}

	for _, e := range entries {
		if err := r.set(e); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// DefaultRegistry decodes detail transactions and batch headers and treats
// every other known record type as an extension.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(
		Entry{Code: "DT", Name: "detail_transaction", Processable: true},
		Entry{Code: "BH", Name: "batch_header", Processable: true},
		Entry{Code: "P1", Name: "purchasing_card_1"},
		Entry{Code: "P2", Name: "purchasing_card_2"},
		Entry{Code: "AD", Name: "adjustment"},
		Entry{Code: "E1", Name: "emv"},
		Entry{Code: "G2", Name: "general_2"},
		Entry{Code: "DR", Name: "direct_marketing"},
		Entry{Code: "CK", Name: "check"},
		Entry{Code: "LG", Name: "lodging"},
		Entry{Code: "GE", Name: "generic_extension"},
	)
	if err != nil {
		panic(err)
	}

	return r
}

func (r *Registry) set(e Entry) error {
	if len(e.Code) != RecordTypeLength {
		return fmt.Errorf("record type %q must be %d characters", e.Code, RecordTypeLength)
	}

	if e.Processable && SchemaFor(e.Code) == nil {
		return fmt.Errorf("record type %q is processable but has no schema", e.Code)
	}

	r.entries[e.Code] = e

	return nil
}

func (r *Registry) Lookup(code string) (Entry, bool) {
	e, ok := r.entries[code]
	return e, ok
}

func (r *Registry) Entries() []Entry {
	codes := slices.Sorted(maps.Keys(r.entries))

	entries := make([]Entry, 0, len(codes))
	for _, c := range codes {
		entries = append(entries, r.entries[c])
	}

	return entries
}

// LoadRegistry reads tab separated overrides (columns code, name, processable)
// on top of base. base is not modified.
func LoadRegistry(src io.Reader, base *Registry) (*Registry, error) {
	r := &Registry{entries: maps.Clone(base.entries)}

	reader := csv.NewReader(src)
	reader.Comma = '\t'
	reader.Comment = '#'

	dec, err := csvutil.NewDecoder(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	for line := 1; ; line++ {
		var e Entry

		err := dec.Decode(&e)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode record type #%d: %w", line, err)
		}

		e.Code = strings.TrimSpace(e.Code)
		if err := r.set(e); err != nil {
			return nil, fmt.Errorf("invalid record type #%d: %w", line, err)
		}
	}

	return r, nil
}
