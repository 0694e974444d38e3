package document

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"sickbeasts-storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres stores documents as JSONB rows in the documents table.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger.Named("document")}
}

func (r *postgresRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *postgresRepo) Create(ctx context.Context, doc Document) (Document, error) {
	if doc.Type() == "" {
		return nil, fmt.Errorf("create document: %w: _type required", domain.ErrInvalidInput)
	}
	d := cloneDocument(doc)
	if d.ID() == "" {
		d[FieldID] = uuid.NewString()
	}
	now := time.Now().UTC()
	ts := now.Format(time.RFC3339Nano)
	d[FieldCreatedAt] = ts
	d[FieldUpdatedAt] = ts

	body, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}

	const q = `
INSERT INTO documents (id, doc_type, body, created_at, updated_at)
VALUES ($1, $2, $3::jsonb, $4, $4)
RETURNING body
`
	var raw []byte
	if err := r.pool.QueryRow(ctx, q, d.ID(), d.Type(), string(body), now).Scan(&raw); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Error("create failed", zap.String("type", d.Type()), zap.String("id", d.ID()), zap.Error(err))
		return nil, err
	}
	r.logger.Debug("created", zap.String("type", d.Type()), zap.String("id", d.ID()))
	return decodeBody(raw)
}

func (r *postgresRepo) Patch(id string) *Patch {
	return NewPatch(id, r.commit)
}

func (r *postgresRepo) commit(ctx context.Context, id string, set map[string]interface{}, unset []string) (Document, error) {
	setJSON, err := json.Marshal(set)
	if err != nil {
		return nil, fmt.Errorf("encode patch: %w", err)
	}
	if unset == nil {
		unset = []string{}
	}
	now := time.Now().UTC()

	const q = `
UPDATE documents
SET body = (body - $2::text[]) || $3::jsonb || jsonb_build_object('_updatedAt', $4::text),
    updated_at = $5
WHERE id = $1
RETURNING body
`
	var raw []byte
	err = r.pool.QueryRow(ctx, q, id, unset, string(setJSON), now.Format(time.RFC3339Nano), now).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("patch failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	r.logger.Debug("patched", zap.String("id", id), zap.Int("set", len(set)), zap.Int("unset", len(unset)))
	return decodeBody(raw)
}

func (r *postgresRepo) Fetch(ctx context.Context, q Query) ([]Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	sql, args, err := buildSelect(q)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		r.logger.Error("fetch failed", zap.String("type", q.Type), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var result []Document
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		doc, err := decodeBody(raw)
		if err != nil {
			return nil, err
		}
		result = append(result, Project(doc, q.Fields))
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("fetch rows failed", zap.String("type", q.Type), zap.Error(err))
		return nil, err
	}
	r.logger.Debug("fetched", zap.String("type", q.Type), zap.Int("count", len(result)))
	return result, nil
}

func (r *postgresRepo) FetchOne(ctx context.Context, q Query) (Document, error) {
	q.Limit = 1
	docs, err := r.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, domain.ErrNotFound
	}
	return docs[0], nil
}

// buildSelect turns a Query into SQL. Equality filters use JSONB containment
// so every value stays a bind parameter.
func buildSelect(q Query) (string, []interface{}, error) {
	var sb strings.Builder
	args := []interface{}{q.Type}
	sb.WriteString("SELECT body FROM documents WHERE doc_type = $1")

	for _, f := range q.Filters {
		contain, err := json.Marshal(nestValue(f.Field, f.Value))
		if err != nil {
			return "", nil, fmt.Errorf("encode filter %q: %w", f.Field, err)
		}
		args = append(args, string(contain))
		fmt.Fprintf(&sb, " AND body @> $%d::jsonb", len(args))
	}

	if q.Sort != nil {
		args = append(args, strings.Split(q.Sort.Field, "."))
		dir := "ASC"
		if q.Sort.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY body #> $%d::text[] %s NULLS LAST, created_at %s, id %s", len(args), dir, dir, dir)
	} else {
		sb.WriteString(" ORDER BY created_at ASC, id")
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}
	return sb.String(), args, nil
}

func nestValue(path string, value interface{}) map[string]interface{} {
	parts := strings.Split(path, ".")
	out := map[string]interface{}{parts[len(parts)-1]: value}
	for i := len(parts) - 2; i >= 0; i-- {
		out = map[string]interface{}{parts[i]: out}
	}
	return out
}

// decodeBody keeps numbers as json.Number so prices survive without float rounding.
func decodeBody(raw []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}
