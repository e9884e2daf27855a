package repo

import (
	"context"
	"database/sql"

	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/docmind/internal/config"
	"github.com/xxxsen/docmind/internal/model"
	"github.com/xxxsen/docmind/internal/pkg/dbutil"
)

// EmbeddingCacheRepo persists provider embeddings. Postgres stores them in a
// pgvector column, sqlite as a float32 BLOB.
type EmbeddingCacheRepo struct {
	db     *sql.DB
	driver string
}

func NewEmbeddingCacheRepo(db *sql.DB, driver string) *EmbeddingCacheRepo {
	return &EmbeddingCacheRepo{db: db, driver: driver}
}

func (r *EmbeddingCacheRepo) Get(ctx context.Context, modelName, taskType, contentHash string) ([]float32, bool, error) {
	query, args := dbutil.FinalizeFor(r.driver, `
		SELECT embedding
		FROM embedding_cache
		WHERE model_name = ? AND task_type = ? AND content_hash = ?
	`, []interface{}{modelName, taskType, contentHash})
	row := r.db.QueryRowContext(ctx, query, args...)
	values, err := r.scanEmbedding(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return values, true, nil
}

func (r *EmbeddingCacheRepo) Save(ctx context.Context, item *model.EmbeddingCache) error {
	var embedding interface{} = dbutil.EncodeVector(item.Embedding)
	if r.driver == config.DriverPostgres {
		embedding = pgvector.NewVector(item.Embedding)
	}
	query, args := dbutil.FinalizeFor(r.driver, `
		INSERT INTO embedding_cache (model_name, task_type, content_hash, embedding, ctime)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (model_name, task_type, content_hash) DO UPDATE SET
			embedding = excluded.embedding,
			ctime = excluded.ctime
	`, []interface{}{item.ModelName, item.TaskType, item.ContentHash, embedding, item.Ctime})
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// DeleteBefore drops entries created before cutoff (unix seconds).
func (r *EmbeddingCacheRepo) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	query, args := dbutil.FinalizeFor(r.driver, `DELETE FROM embedding_cache WHERE ctime < ?`, []interface{}{cutoff})
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *EmbeddingCacheRepo) scanEmbedding(row *sql.Row) ([]float32, error) {
	if r.driver == config.DriverPostgres {
		var v pgvector.Vector
		if err := row.Scan(&v); err != nil {
			return nil, err
		}
		return v.Slice(), nil
	}
	var blob []byte
	if err := row.Scan(&blob); err != nil {
		return nil, err
	}
	return dbutil.DecodeVector(blob)
}
