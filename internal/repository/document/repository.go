package document

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Document is a loosely typed content-store record. System fields use the
// leading-underscore names of the headless CMS the store mirrors.
type Document map[string]interface{}

const (
	FieldID        = "_id"
	FieldType      = "_type"
	FieldCreatedAt = "_createdAt"
	FieldUpdatedAt = "_updatedAt"
)

func (d Document) ID() string {
	s, _ := d[FieldID].(string)
	return s
}

func (d Document) Type() string {
	s, _ := d[FieldType].(string)
	return s
}

// Lookup resolves a dotted path such as "slug.current".
func (d Document) Lookup(path string) (interface{}, bool) {
	var cur interface{} = map[string]interface{}(d)
	for _, part := range strings.Split(path, ".") {
		var m map[string]interface{}
		switch v := cur.(type) {
		case map[string]interface{}:
			m = v
		case Document:
			m = v
		default:
			return nil, false
		}
		next, ok := m[part]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Filter is an equality condition on a dotted field path.
type Filter struct {
	Field string
	Value interface{}
}

// Sort orders results by a dotted field path.
type Sort struct {
	Field string
	Desc  bool
}

// Query selects documents of one type.
type Query struct {
	Type    string
	Filters []Filter
	Sort    *Sort
	Offset  int
	Limit   int
	Fields  []string
}

var fieldPathRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// ValidFieldPath reports whether path is safe to use in a filter or sort.
func ValidFieldPath(path string) bool {
	return fieldPathRe.MatchString(path)
}

// Validate checks the query before it reaches a backend.
func (q Query) Validate() error {
	if strings.TrimSpace(q.Type) == "" {
		return fmt.Errorf("query: type required")
	}
	for _, f := range q.Filters {
		if !ValidFieldPath(f.Field) {
			return fmt.Errorf("query: invalid filter field %q", f.Field)
		}
	}
	if q.Sort != nil && !ValidFieldPath(q.Sort.Field) {
		return fmt.Errorf("query: invalid sort field %q", q.Sort.Field)
	}
	if q.Offset < 0 || q.Limit < 0 {
		return fmt.Errorf("query: negative range")
	}
	return nil
}

// Reader is the content-store read API.
type Reader interface {
	Fetch(ctx context.Context, q Query) ([]Document, error)
	// FetchOne returns the first match or domain.ErrNotFound.
	FetchOne(ctx context.Context, q Query) (Document, error)
}

// Writer is the content-store write API.
type Writer interface {
	Create(ctx context.Context, doc Document) (Document, error)
	Patch(id string) *Patch
}

// Store combines both halves of the content store.
type Store interface {
	Reader
	Writer
	Ping(ctx context.Context) error
}

// Project keeps only the requested top-level fields. System fields are always kept.
func Project(doc Document, fields []string) Document {
	if len(fields) == 0 {
		return doc
	}
	out := Document{}
	for _, k := range []string{FieldID, FieldType, FieldCreatedAt} {
		if v, ok := doc[k]; ok {
			out[k] = v
		}
	}
	for _, f := range fields {
		if v, ok := doc[f]; ok {
			out[f] = v
		}
	}
	return out
}
