package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/jamesainslie/go-cremi/annotations"
)

// WriteAnnotations replaces the stored annotations with a. An empty set
// leaves the container unchanged.
func (f *File) WriteAnnotations(ctx context.Context, a *annotations.Annotations) (retErr error) {
	if err := f.writable(); err != nil {
		return err
	}
	if a.Len() == 0 {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write annotations: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"annotations", "annotation_comments", "annotation_partners"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("write annotations: clear %s: %w", table, err)
		}
	}

	ids, types, locations := a.IDs(), a.Types(), a.Locations()
	for i, id := range ids {
		loc, err := json.Marshal(locations[i])
		if err != nil {
			return fmt.Errorf("write annotations: encode location of %d: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO annotations (position, id, type, location) VALUES (?, ?, ?, ?)`,
			i, int64(id), types[i], string(loc)); err != nil {
			return fmt.Errorf("write annotations: insert %d: %w", id, err)
		}
	}

	for _, id := range a.CommentIDs() {
		comment, _ := a.Comment(id)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO annotation_comments (id, comment) VALUES (?, ?)`, int64(id), comment); err != nil {
			return fmt.Errorf("write annotations: comment %d: %w", id, err)
		}
	}

	for i, p := range a.PrePostPartners() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO annotation_partners (position, pre, post) VALUES (?, ?, ?)`,
			i, int64(p.Pre), int64(p.Post)); err != nil {
			return fmt.Errorf("write annotations: partners %d -> %d: %w", p.Pre, p.Post, err)
		}
	}

	if slices.ContainsFunc(a.Offset, func(o float64) bool { return o != 0 }) {
		offset, err := json.Marshal(a.Offset)
		if err != nil {
			return fmt.Errorf("write annotations: encode offset: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, metaAnnotationsOffset, string(offset)); err != nil {
			return fmt.Errorf("write annotations: offset: %w", err)
		}
	} else if _, err := tx.ExecContext(ctx, `DELETE FROM meta WHERE key = ?`, metaAnnotationsOffset); err != nil {
		return fmt.Errorf("write annotations: offset: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write annotations: commit: %w", err)
	}
	return nil
}

// HasAnnotations reports whether the container holds any annotations.
func (f *File) HasAnnotations(ctx context.Context) (bool, error) {
	var n int
	if err := f.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM annotations`).Scan(&n); err != nil {
		return false, fmt.Errorf("query annotations: %w", err)
	}
	return n > 0, nil
}

// ReadAnnotations loads the stored annotations. A container without
// annotations yields an empty set.
func (f *File) ReadAnnotations(ctx context.Context) (*annotations.Annotations, error) {
	a := annotations.New()

	var offset string
	err := f.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, metaAnnotationsOffset).Scan(&offset)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("read annotations: offset: %w", err)
	default:
		if err := json.Unmarshal([]byte(offset), &a.Offset); err != nil {
			return nil, fmt.Errorf("read annotations: decode offset: %w", err)
		}
	}

	if err := f.readAnnotationRows(ctx, a); err != nil {
		return nil, err
	}
	if err := f.readComments(ctx, a); err != nil {
		return nil, err
	}
	if err := f.readPartners(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (f *File) readAnnotationRows(ctx context.Context, a *annotations.Annotations) error {
	rows, err := f.db.QueryContext(ctx, `SELECT id, type, location FROM annotations ORDER BY position`)
	if err != nil {
		return fmt.Errorf("read annotations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			id       int64
			typ, raw string
			loc      []float64
		)
		if err := rows.Scan(&id, &typ, &raw); err != nil {
			return fmt.Errorf("read annotations: scan: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &loc); err != nil {
			return fmt.Errorf("read annotations: decode location of %d: %w", uint64(id), err)
		}
		a.Add(uint64(id), typ, loc)
	}
	return rows.Err()
}

func (f *File) readComments(ctx context.Context, a *annotations.Annotations) error {
	rows, err := f.db.QueryContext(ctx, `SELECT id, comment FROM annotation_comments ORDER BY id`)
	if err != nil {
		return fmt.Errorf("read comments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			id      int64
			comment string
		)
		if err := rows.Scan(&id, &comment); err != nil {
			return fmt.Errorf("read comments: scan: %w", err)
		}
		if err := a.AddComment(uint64(id), comment); err != nil {
			return fmt.Errorf("read comments: %w", err)
		}
	}
	return rows.Err()
}

func (f *File) readPartners(ctx context.Context, a *annotations.Annotations) error {
	rows, err := f.db.QueryContext(ctx, `SELECT pre, post FROM annotation_partners ORDER BY position`)
	if err != nil {
		return fmt.Errorf("read partners: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var pre, post int64
		if err := rows.Scan(&pre, &post); err != nil {
			return fmt.Errorf("read partners: scan: %w", err)
		}
		if err := a.SetPrePostPartners(uint64(pre), uint64(post)); err != nil {
			return fmt.Errorf("read partners: %w", err)
		}
	}
	return rows.Err()
}
