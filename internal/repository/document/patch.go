package document

import "context"

// CommitFunc applies a patch inside a backend.
type CommitFunc func(ctx context.Context, id string, set map[string]interface{}, unset []string) (Document, error)

// Patch collects field changes for one document until Commit.
type Patch struct {
	id     string
	set    map[string]interface{}
	unset  []string
	commit CommitFunc
}

func NewPatch(id string, commit CommitFunc) *Patch {
	return &Patch{id: id, set: map[string]interface{}{}, commit: commit}
}

// Set merges top-level fields. Later calls override earlier ones.
func (p *Patch) Set(fields map[string]interface{}) *Patch {
	for k, v := range fields {
		if isSystemField(k) {
			continue
		}
		p.set[k] = v
	}
	return p
}

// Unset removes top-level fields.
func (p *Patch) Unset(fields ...string) *Patch {
	for _, f := range fields {
		if isSystemField(f) {
			continue
		}
		delete(p.set, f)
		p.unset = append(p.unset, f)
	}
	return p
}

// Commit writes the patch and returns the updated document, or
// domain.ErrNotFound when the id does not exist.
func (p *Patch) Commit(ctx context.Context) (Document, error) {
	return p.commit(ctx, p.id, p.set, p.unset)
}

func isSystemField(k string) bool {
	switch k {
	case FieldID, FieldType, FieldCreatedAt, FieldUpdatedAt:
		return true
	}
	return false
}
