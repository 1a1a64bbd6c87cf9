// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/olegiv/portal-go/internal/model"
)

const pageColumns = `id, slug, data, version, updated_at`

func scanPageDocument(row rowScanner) (model.PageDocument, error) {
	var (
		doc  model.PageDocument
		data string
	)
	if err := row.Scan(&doc.ID, &doc.Slug, &data, &doc.Version, &doc.UpdatedAt); err != nil {
		return model.PageDocument{}, err
	}
	doc.Data = json.RawMessage(data)
	doc.UpdatedAt = doc.UpdatedAt.UTC()
	return doc, nil
}

// GetPageDocument returns the document stored for slug.
func (q *Queries) GetPageDocument(ctx context.Context, slug string) (model.PageDocument, error) {
	return scanPageDocument(q.queryRow(ctx, `SELECT `+pageColumns+` FROM page_documents WHERE slug = ?`, slug))
}

// ListPageDocuments returns every stored document ordered by slug.
func (q *Queries) ListPageDocuments(ctx context.Context) ([]model.PageDocument, error) {
	rows, err := q.query(ctx, `SELECT `+pageColumns+` FROM page_documents ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("listing pages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	docs := []model.PageDocument{}
	for rows.Next() {
		doc, err := scanPageDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// UpsertPageDocument writes a document unconditionally; the last write wins.
func (q *Queries) UpsertPageDocument(ctx context.Context, slug string, data json.RawMessage, now time.Time) (model.PageDocument, error) {
	_, err := q.exec(ctx, `INSERT INTO page_documents (slug, data, version, updated_at)
	VALUES (?, ?, 1, ?)
	ON CONFLICT (slug) DO UPDATE SET
		data = excluded.data,
		version = page_documents.version + 1,
		updated_at = excluded.updated_at`,
		slug, string(data), now.UTC(),
	)
	if err != nil {
		return model.PageDocument{}, err
	}
	return q.GetPageDocument(ctx, slug)
}

// UpsertPageDocumentVersioned writes a document only if the stored version
// equals expected. An expected version of 0 means the document must not exist
// yet. Mismatches return ErrStaleVersion.
func (q *Queries) UpsertPageDocumentVersioned(ctx context.Context, slug string, data json.RawMessage, expected int64, now time.Time) (model.PageDocument, error) {
	var (
		id  int64
		err error
	)
	if expected == 0 {
		err = q.queryRow(ctx, `INSERT INTO page_documents (slug, data, version, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT (slug) DO NOTHING
		RETURNING id`, slug, string(data), now.UTC()).Scan(&id)
	} else {
		err = q.queryRow(ctx, `UPDATE page_documents SET
			data = ?, version = version + 1, updated_at = ?
		WHERE slug = ? AND version = ?
		RETURNING id`, string(data), now.UTC(), slug, expected).Scan(&id)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return model.PageDocument{}, ErrStaleVersion
	}
	if err != nil {
		return model.PageDocument{}, err
	}
	return q.GetPageDocument(ctx, slug)
}
