// Package tables resolves the physical table of each persisted entity for a
// deployment environment.
package tables

import (
	"fmt"

	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
)

type EntityKind string

const (
	KindUploads       EntityKind = "uploads"
	KindRawRows       EntityKind = "raw_import_rows"
	KindRecords       EntityKind = "structured_records"
	KindContents      EntityKind = "raw_contents"
	KindContentChunks EntityKind = "raw_content_chunks"
)

var kinds = []EntityKind{KindUploads, KindRawRows, KindRecords, KindContents, KindContentChunks}

type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

func ParseEnvironment(s string) (Environment, error) {
	switch env := Environment(s); env {
	case Development, Production:
		return env, nil
	default:
		return "", domain.NewValidationError("environment", fmt.Sprintf("unknown environment %q", s))
	}
}

type Resolver interface {
	ResolveTable(kind EntityKind, env Environment) (string, error)
}

// PrefixResolver prepends a per environment prefix to the entity name.
type PrefixResolver struct {
	prefixes map[Environment]string
}

// NewPrefixResolver routes development to dev_ tables and production to the
// bare names.
func NewPrefixResolver() *PrefixResolver {
	return &PrefixResolver{
		prefixes: map[Environment]string{
			Development: "dev_",
			Production:  "",
		},
	}
}

func (r *PrefixResolver) ResolveTable(kind EntityKind, env Environment) (string, error) {
	prefix, ok := r.prefixes[env]
	if !ok {
		return "", fmt.Errorf("no table prefix for environment %q", env)
	}

	for _, k := range kinds {
		if k == kind {
			return prefix + string(kind), nil
		}
	}

	return "", fmt.Errorf("unknown entity kind %q", kind)
}

// Names holds the resolved table of every entity for one environment.
type Names struct {
	Uploads       string
	RawRows       string
	Records       string
	Contents      string
	ContentChunks string
}

func Resolve(r Resolver, env Environment) (Names, error) {
	var (
		n   Names
		err error
	)

	targets := []struct {
		kind EntityKind
		dst  *string
	}{
		{KindUploads, &n.Uploads},
		{KindRawRows, &n.RawRows},
		{KindRecords, &n.Records},
		{KindContents, &n.Contents},
		{KindContentChunks, &n.ContentChunks},
	}

	for _, t := range targets {
		if *t.dst, err = r.ResolveTable(t.kind, env); err != nil {
			return Names{}, fmt.Errorf("failed to resolve %s table: %w", t.kind, err)
		}
	}

	return n, nil
}
