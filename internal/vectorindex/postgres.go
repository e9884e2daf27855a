package vectorindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/docmind/internal/model"
	appErr "github.com/xxxsen/docmind/internal/pkg/errors"
)

// Postgres keeps vectors in a pgvector column and lets the server rank them
// with the <=> cosine distance operator.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Upsert(ctx context.Context, namespace string, records []model.VectorRecord) error {
	if err := validateRecords(records); err != nil {
		return err
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	const query = `
		INSERT INTO chunk_vectors (namespace, id, document_id, chunk_index, metadata, embedding, mtime)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (namespace, id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			chunk_index = EXCLUDED.chunk_index,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding,
			mtime = EXCLUDED.mtime
	`
	now := time.Now().Unix()
	for _, rec := range records {
		meta, err := json.Marshal(rec.Metadata)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query,
			namespace,
			rec.ID,
			rec.Metadata.DocumentID,
			rec.Metadata.Index,
			meta,
			pgvector.NewVector(rec.Vector),
			now,
		); err != nil {
			return fmt.Errorf("upsert vector %s: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}

func (p *Postgres) Query(ctx context.Context, namespace string, vector []float32, filter Filter, k int) ([]Candidate, error) {
	if k <= 0 {
		return nil, nil
	}
	where, args, err := documentClause(namespace, filter)
	if err != nil || where == "" {
		return nil, err
	}
	query := `SELECT id, metadata, embedding, embedding <=> ? AS distance FROM chunk_vectors WHERE ` + where +
		` ORDER BY distance ASC LIMIT ?`
	args = append([]interface{}{pgvector.NewVector(vector)}, args...)
	args = append(args, k)
	rows, err := p.db.QueryContext(ctx, sqlx.Rebind(sqlx.DOLLAR, query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Candidate
	for rows.Next() {
		var (
			rec      model.VectorRecord
			meta     []byte
			emb      pgvector.Vector
			distance sql.NullFloat64
		)
		if err := rows.Scan(&rec.ID, &meta, &emb, &distance); err != nil {
			return nil, err
		}
		// zero vectors have no defined cosine distance
		if !distance.Valid || math.IsNaN(distance.Float64) {
			continue
		}
		if err := json.Unmarshal(meta, &rec.Metadata); err != nil {
			return nil, err
		}
		rec.Vector = emb.Slice()
		rec.Namespace = namespace
		out = append(out, Candidate{Record: rec, Distance: distance.Float64, Relevance: Relevance(distance.Float64)})
	}
	return out, rows.Err()
}

func (p *Postgres) DeleteWhere(ctx context.Context, namespace string, filter Filter) (int, error) {
	if filter.IsZero() {
		return 0, fmt.Errorf("delete requires a filter: %w", appErr.ErrInvalid)
	}
	where, args, err := documentClause(namespace, filter)
	if err != nil || where == "" {
		return 0, err
	}
	res, err := p.db.ExecContext(ctx, sqlx.Rebind(sqlx.DOLLAR, `DELETE FROM chunk_vectors WHERE `+where), args...)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	return int(affected), err
}

func (p *Postgres) Get(ctx context.Context, namespace string, filter Filter, limit int) ([]model.VectorRecord, error) {
	where, args, err := documentClause(namespace, filter)
	if err != nil || where == "" {
		return nil, err
	}
	query := `SELECT id, metadata, embedding FROM chunk_vectors WHERE ` + where + ` ORDER BY document_id ASC, chunk_index ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := p.db.QueryContext(ctx, sqlx.Rebind(sqlx.DOLLAR, query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.VectorRecord
	for rows.Next() {
		var (
			rec  model.VectorRecord
			meta []byte
			emb  pgvector.Vector
		)
		if err := rows.Scan(&rec.ID, &meta, &emb); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(meta, &rec.Metadata); err != nil {
			return nil, err
		}
		rec.Vector = emb.Slice()
		rec.Namespace = namespace
		out = append(out, rec)
	}
	return out, rows.Err()
}

// documentClause renders the namespace and document restriction with "?"
// placeholders. An empty clause means the filter can match nothing.
func documentClause(namespace string, filter Filter) (string, []interface{}, error) {
	ids := filter.documentIDs()
	if ids == nil {
		return "namespace = ?", []interface{}{namespace}, nil
	}
	if len(ids) == 0 {
		return "", nil, nil
	}
	clause, args, err := sqlx.In("namespace = ? AND document_id IN (?)", namespace, ids)
	if err != nil {
		return "", nil, err
	}
	return strings.TrimSpace(clause), args, nil
}
