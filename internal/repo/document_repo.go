package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/docmind/internal/model"
	"github.com/xxxsen/docmind/internal/pkg/dbutil"
	appErr "github.com/xxxsen/docmind/internal/pkg/errors"
)

var documentColumns = []string{"id", "owner_id", "title", "content", "ctime", "mtime"}

type DocumentRepo struct {
	db     *sql.DB
	driver string
}

func NewDocumentRepo(db *sql.DB, driver string) *DocumentRepo {
	return &DocumentRepo{db: db, driver: driver}
}

func (r *DocumentRepo) Upsert(ctx context.Context, doc *model.Document) error {
	const query = `
		INSERT INTO documents (id, owner_id, title, content, ctime, mtime)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			mtime = excluded.mtime
		WHERE documents.owner_id = excluded.owner_id
	`
	sqlStr, args := dbutil.FinalizeFor(r.driver, query, []interface{}{
		doc.ID, doc.OwnerID, doc.Title, doc.Content, doc.Ctime, doc.Mtime,
	})
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// the id is taken by another owner
		return appErr.ErrConflict
	}
	return nil
}

func (r *DocumentRepo) Get(ctx context.Context, ownerID, docID string) (*model.Document, error) {
	where := map[string]interface{}{
		"id":       docID,
		"owner_id": ownerID,
	}
	docs, err := r.selectDocuments(ctx, where)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, appErr.ErrNotFound
	}
	return docs[0], nil
}

func (r *DocumentRepo) List(ctx context.Context, ownerID string, filter model.DocumentFilter) ([]*model.Document, error) {
	where := map[string]interface{}{
		"owner_id": ownerID,
		"_orderby": "ctime asc, id asc",
	}
	if filter.IDs != nil {
		if len(filter.IDs) == 0 {
			return []*model.Document{}, nil
		}
		ids := make([]interface{}, 0, len(filter.IDs))
		for _, id := range filter.IDs {
			ids = append(ids, id)
		}
		where["id in"] = ids
	}
	if filter.Limit > 0 {
		where["_limit"] = []uint{0, uint(filter.Limit)}
	}
	return r.selectDocuments(ctx, where)
}

func (r *DocumentRepo) Delete(ctx context.Context, ownerID, docID string) error {
	where := map[string]interface{}{
		"id":       docID,
		"owner_id": ownerID,
	}
	sqlStr, args, err := builder.BuildDelete("documents", where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.FinalizeFor(r.driver, sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

// MarkIndexed records that the document revision at mtime went through
// indexing, even when it produced no chunk.
func (r *DocumentRepo) MarkIndexed(ctx context.Context, ownerID, docID string, mtime int64) error {
	where := map[string]interface{}{
		"id":       docID,
		"owner_id": ownerID,
	}
	update := map[string]interface{}{
		"indexed_mtime": mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("documents", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.FinalizeFor(r.driver, sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// ListStaleDocuments returns documents whose chunk vectors are missing or
// older than the document itself. Revisions already marked as indexed are
// skipped so content without chunks is not retried forever.
func (r *DocumentRepo) ListStaleDocuments(ctx context.Context, limit int) ([]*model.Document, error) {
	query := `
		SELECT d.id, d.owner_id, d.title, d.content, d.ctime, d.mtime
		FROM documents d
		WHERE NOT EXISTS (
			SELECT 1 FROM chunk_vectors v
			WHERE v.namespace = 'owner:' || d.owner_id
				AND v.document_id = d.id
				AND v.mtime >= d.mtime
		)
		AND d.indexed_mtime < d.mtime
		ORDER BY d.mtime ASC
		LIMIT ?
	`
	sqlStr, args := dbutil.FinalizeFor(r.driver, query, []interface{}{limit})
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func (r *DocumentRepo) selectDocuments(ctx context.Context, where map[string]interface{}) ([]*model.Document, error) {
	sqlStr, args, err := builder.BuildSelect("documents", where, documentColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.FinalizeFor(r.driver, sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func scanDocuments(rows *sql.Rows) ([]*model.Document, error) {
	docs := make([]*model.Document, 0)
	for rows.Next() {
		var doc model.Document
		if err := rows.Scan(&doc.ID, &doc.OwnerID, &doc.Title, &doc.Content, &doc.Ctime, &doc.Mtime); err != nil {
			return nil, err
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}
