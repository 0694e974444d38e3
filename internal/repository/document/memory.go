package document

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"sickbeasts-storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type memoryEntry struct {
	seq int
	doc Document
}

// Memory is an in-process content store used for local runs and tests.
type Memory struct {
	mu      sync.RWMutex
	docs    map[string]*memoryEntry
	nextSeq int
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		docs: make(map[string]*memoryEntry),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the timestamp source.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Create(ctx context.Context, doc Document) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if doc.Type() == "" {
		return nil, fmt.Errorf("create document: %w: _type required", domain.ErrInvalidInput)
	}
	d, err := roundTrip(doc)
	if err != nil {
		return nil, err
	}
	if d.ID() == "" {
		d[FieldID] = uuid.NewString()
	}
	ts := m.now().Format(time.RFC3339Nano)
	d[FieldCreatedAt] = ts
	d[FieldUpdatedAt] = ts

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.docs[d.ID()]; exists {
		return nil, domain.ErrAlreadyExists
	}
	m.nextSeq++
	m.docs[d.ID()] = &memoryEntry{seq: m.nextSeq, doc: d}
	return cloneDocument(d), nil
}

func (m *Memory) Patch(id string) *Patch {
	return NewPatch(id, m.commit)
}

func (m *Memory) commit(ctx context.Context, id string, set map[string]interface{}, unset []string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fields, err := roundTrip(Document(set))
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	for _, f := range unset {
		delete(entry.doc, f)
	}
	for k, v := range fields {
		entry.doc[k] = v
	}
	entry.doc[FieldUpdatedAt] = m.now().Format(time.RFC3339Nano)
	return cloneDocument(entry.doc), nil
}

func (m *Memory) Fetch(ctx context.Context, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	matched := make([]*memoryEntry, 0)
	for _, e := range m.docs {
		if e.doc.Type() != q.Type || !matchesFilters(e.doc, q.Filters) {
			continue
		}
		matched = append(matched, e)
	}
	m.mu.RUnlock()

	// Ties follow insertion order in the sort direction, as created_at does in Postgres.
	newestFirst := q.Sort != nil && q.Sort.Desc
	sort.SliceStable(matched, func(i, j int) bool {
		if newestFirst {
			return matched[i].seq > matched[j].seq
		}
		return matched[i].seq < matched[j].seq
	})
	if q.Sort != nil {
		field, desc := q.Sort.Field, q.Sort.Desc
		sort.SliceStable(matched, func(i, j int) bool {
			a, aok := matched[i].doc.Lookup(field)
			b, bok := matched[j].doc.Lookup(field)
			// Missing values sort last in both directions.
			switch {
			case !aok || a == nil:
				return false
			case !bok || b == nil:
				return true
			}
			c := compareValues(a, b)
			if desc {
				return c > 0
			}
			return c < 0
		})
	}

	start := q.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}

	out := make([]Document, 0, end-start)
	for _, e := range matched[start:end] {
		out = append(out, Project(cloneDocument(e.doc), q.Fields))
	}
	return out, nil
}

func (m *Memory) FetchOne(ctx context.Context, q Query) (Document, error) {
	q.Limit = 1
	docs, err := m.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, domain.ErrNotFound
	}
	return docs[0], nil
}

func matchesFilters(doc Document, filters []Filter) bool {
	for _, f := range filters {
		v, ok := doc.Lookup(f.Field)
		if !ok || !valuesEqual(v, f.Value) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b interface{}) bool {
	na, aok := toFloat(a)
	nb, bok := toFloat(b)
	if aok && bok {
		return na == nb
	}
	return reflect.DeepEqual(a, b)
}

// compareValues ranks strings before numbers before booleans when types differ.
func compareValues(a, b interface{}) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return ra - rb
	}
	switch ra {
	case 0:
		return strings.Compare(a.(string), b.(string))
	case 1:
		fa, _ := toFloat(a)
		fb, _ := toFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case 2:
		ba, bb := a.(bool), b.(bool)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		}
		return 1
	}
	return 0
}

func typeRank(v interface{}) int {
	switch v.(type) {
	case string:
		return 0
	case bool:
		return 2
	}
	if _, ok := toFloat(v); ok {
		return 1
	}
	return 3
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case decimal.Decimal:
		return n.InexactFloat64(), true
	}
	return 0, false
}

// roundTrip stores values in the same shape the Postgres backend returns them.
func roundTrip(d Document) (Document, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return decodeBody(raw)
}

func cloneDocument(d Document) Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case Document:
		return map[string]interface{}(cloneDocument(t))
	case map[string]interface{}:
		return map[string]interface{}(cloneDocument(Document(t)))
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	}
	return v
}
