// Package store reads and writes CREMI containers: single-file SQLite
// databases holding named label volumes and point annotations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/jamesainslie/go-cremi/geom"
	"github.com/jamesainslie/go-cremi/volume"
)

// Mode selects how a container is opened.
type Mode int

const (
	// ModeRead opens an existing container; writes fail with ErrReadOnly.
	ModeRead Mode = iota
	// ModeWrite creates a new container, replacing any existing file.
	ModeWrite
	// ModeAppend opens a container for writing, creating it if needed.
	ModeAppend
)

func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "r"
	case ModeWrite:
		return "w"
	case ModeAppend:
		return "a"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Well-known volume paths.
const (
	RawPath       = "/volumes/raw"
	NeuronIDsPath = "/volumes/labels/neuron_ids"
	CleftsPath    = "/volumes/labels/clefts"
)

// FileFormat is recorded in every container opened for writing.
const FileFormat = "0.2"

const schema = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS volumes (
	path         TEXT PRIMARY KEY,
	dtype        TEXT NOT NULL,
	resolution   TEXT NOT NULL,
	voxel_offset TEXT,
	comment      TEXT,
	payload      BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS annotations (
	position INTEGER PRIMARY KEY,
	id       INTEGER NOT NULL UNIQUE,
	type     TEXT NOT NULL,
	location TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS annotation_comments (
	id      INTEGER PRIMARY KEY,
	comment TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS annotation_partners (
	position INTEGER PRIMARY KEY,
	pre      INTEGER NOT NULL,
	post     INTEGER NOT NULL
);`

const (
	metaFileFormat        = "file_format"
	metaAnnotationsOffset = "annotations.offset"
)

// File is an open container. Methods are safe for concurrent use.
type File struct {
	db   *sql.DB
	path string
	mode Mode
	mu   sync.Mutex
}

// Open opens the container at path.
func Open(ctx context.Context, path string, mode Mode) (*File, error) {
	switch mode {
	case ModeRead:
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("open container: %w", err)
		}
	case ModeWrite:
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("truncate container: %w", err)
		}
	case ModeAppend:
	default:
		return nil, fmt.Errorf("open container: unknown mode %v", mode)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	f := &File{db: db, path: path, mode: mode}
	if err := f.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return f, nil
}

func (f *File) init(ctx context.Context) error {
	if f.mode == ModeRead {
		var format string
		err := f.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, metaFileFormat).Scan(&format)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidContainer, f.path, err)
		}
		return nil
	}

	if _, err := f.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: %s: create schema: %w", ErrInvalidContainer, f.path, err)
	}
	if _, err := f.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, metaFileFormat, FileFormat); err != nil {
		return fmt.Errorf("record file format: %w", err)
	}
	return nil
}

// Path returns the file path the container was opened with.
func (f *File) Path() string { return f.path }

// Mode returns the mode the container was opened with.
func (f *File) Mode() Mode { return f.mode }

// FileFormat returns the recorded container format version.
func (f *File) FileFormat(ctx context.Context) (string, error) {
	var format string
	err := f.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, metaFileFormat).Scan(&format)
	if err != nil {
		return "", fmt.Errorf("read file format: %w", err)
	}
	return format, nil
}

// Close releases the database handle.
func (f *File) Close() error {
	return f.db.Close()
}

func (f *File) writable() error {
	if f.mode == ModeRead {
		return fmt.Errorf("%w: %s", ErrReadOnly, f.path)
	}
	return nil
}

// WriteVolume stores v at path, replacing any volume already there. The
// offset is only recorded when it is non-zero.
func (f *File) WriteVolume(ctx context.Context, path string, v *volume.Volume) error {
	if err := f.writable(); err != nil {
		return err
	}
	if err := v.Validate(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	resolution, err := json.Marshal(v.Resolution)
	if err != nil {
		return fmt.Errorf("write %s: encode resolution: %w", path, err)
	}
	var offset sql.NullString
	if slices.ContainsFunc(v.Offset, func(o float64) bool { return o != 0 }) {
		b, err := json.Marshal(v.Offset)
		if err != nil {
			return fmt.Errorf("write %s: encode offset: %w", path, err)
		}
		offset = sql.NullString{String: string(b), Valid: true}
	}
	payload := encodePayload(v.Shape, v.Data)

	f.mu.Lock()
	defer f.mu.Unlock()
	_, err = f.db.ExecContext(ctx, `INSERT OR REPLACE INTO volumes
		(path, dtype, resolution, voxel_offset, comment, payload) VALUES (?, ?, ?, ?, ?, ?)`,
		path, dtypeUint64, string(resolution), offset, v.Comment, payload)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadVolume loads the volume stored at path.
func (f *File) ReadVolume(ctx context.Context, path string) (*volume.Volume, error) {
	var (
		dtype      string
		resolution string
		offset     sql.NullString
		comment    sql.NullString
		payload    []byte
	)
	err := f.db.QueryRowContext(ctx,
		`SELECT dtype, resolution, voxel_offset, comment, payload FROM volumes WHERE path = ?`, path).
		Scan(&dtype, &resolution, &offset, &comment, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, path, f.path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if dtype != dtypeUint64 {
		return nil, fmt.Errorf("read %s: %w: unsupported dtype %q", path, ErrCorruptPayload, dtype)
	}

	shape, data, err := decodePayload(payload)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	v := &volume.Volume{Data: data, Shape: shape, Comment: comment.String}
	if err := json.Unmarshal([]byte(resolution), &v.Resolution); err != nil {
		return nil, fmt.Errorf("read %s: decode resolution: %w", path, err)
	}
	if offset.Valid {
		if err := json.Unmarshal([]byte(offset.String), &v.Offset); err != nil {
			return nil, fmt.Errorf("read %s: decode offset: %w", path, err)
		}
	} else {
		v.Offset = geom.Zeros(len(shape))
	}
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return v, nil
}

// HasVolume reports whether a volume is stored at path.
func (f *File) HasVolume(ctx context.Context, path string) (bool, error) {
	var n int
	err := f.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM volumes WHERE path = ?`, path).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query %s: %w", path, err)
	}
	return n > 0, nil
}

// WriteRaw stores the raw intensity volume.
func (f *File) WriteRaw(ctx context.Context, v *volume.Volume) error {
	return f.WriteVolume(ctx, RawPath, v)
}

// WriteNeuronIDs stores the neuron segmentation.
func (f *File) WriteNeuronIDs(ctx context.Context, v *volume.Volume) error {
	return f.WriteVolume(ctx, NeuronIDsPath, v)
}

// WriteClefts stores the synaptic cleft labels.
func (f *File) WriteClefts(ctx context.Context, v *volume.Volume) error {
	return f.WriteVolume(ctx, CleftsPath, v)
}

// ReadRaw loads the raw intensity volume.
func (f *File) ReadRaw(ctx context.Context) (*volume.Volume, error) {
	return f.ReadVolume(ctx, RawPath)
}

// ReadNeuronIDs loads the neuron segmentation.
func (f *File) ReadNeuronIDs(ctx context.Context) (*volume.Volume, error) {
	return f.ReadVolume(ctx, NeuronIDsPath)
}

// ReadClefts loads the synaptic cleft labels.
func (f *File) ReadClefts(ctx context.Context) (*volume.Volume, error) {
	return f.ReadVolume(ctx, CleftsPath)
}

func (f *File) HasRaw(ctx context.Context) (bool, error) { return f.HasVolume(ctx, RawPath) }

func (f *File) HasNeuronIDs(ctx context.Context) (bool, error) {
	return f.HasVolume(ctx, NeuronIDsPath)
}

func (f *File) HasClefts(ctx context.Context) (bool, error) { return f.HasVolume(ctx, CleftsPath) }
