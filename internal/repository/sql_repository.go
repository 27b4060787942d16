package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/anime-shed/image-annotator-go/internal/logger"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Dialect captures the SQL differences between the supported engines
type Dialect struct {
	Name        string
	DriverName  string
	CreateTable string
	numbered    bool
}

var (
	// PostgresDialect targets Postgres through pgx
	PostgresDialect = Dialect{
		Name:       "postgres",
		DriverName: "pgx",
		CreateTable: `CREATE TABLE IF NOT EXISTS annotations (
			id BIGSERIAL PRIMARY KEY,
			image_data BYTEA NOT NULL,
			bounding_boxes TEXT NOT NULL,
			meta_info TEXT
		)`,
		numbered: true,
	}

	// SQLiteDialect targets SQLite through modernc.org/sqlite. AUTOINCREMENT
	// keeps ids from being reused after the highest row is deleted.
	SQLiteDialect = Dialect{
		Name:       "sqlite",
		DriverName: "sqlite",
		CreateTable: `CREATE TABLE IF NOT EXISTS annotations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			image_data BLOB,
			bounding_boxes TEXT NOT NULL,
			meta_info TEXT
		)`,
	}
)

// Placeholder returns the bind marker for the n-th (1-based) argument
func (d Dialect) Placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// SQLOptions tunes the connection pool and statement logging
type SQLOptions struct {
	MaxOpenConns int
	Debug        bool
}

// SQLAnnotationRepository implements AnnotationRepository over database/sql
type SQLAnnotationRepository struct {
	db      *sql.DB
	dialect Dialect
	debug   bool
}

// NewPostgresAnnotationRepository opens a Postgres-backed repository and migrates the schema
func NewPostgresAnnotationRepository(ctx context.Context, dsn string, opts SQLOptions) (*SQLAnnotationRepository, error) {
	return openSQLRepository(ctx, PostgresDialect, dsn, opts)
}

// NewSQLiteAnnotationRepository opens a SQLite-backed repository at path and migrates the schema
func NewSQLiteAnnotationRepository(ctx context.Context, path string, opts SQLOptions) (*SQLAnnotationRepository, error) {
	if path == "" {
		path = "annotations.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	// a single connection serializes writers and avoids SQLITE_BUSY
	opts.MaxOpenConns = 1
	return openSQLRepository(ctx, SQLiteDialect, path, opts)
}

func openSQLRepository(ctx context.Context, dialect Dialect, dsn string, opts SQLOptions) (*SQLAnnotationRepository, error) {
	openMu.Lock()
	db, err := sqlOpen(dialect.DriverName, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Name, err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w: %w", dialect.Name, ErrRepositoryUnavailable, err)
	}

	repo := NewSQLAnnotationRepository(db, dialect, opts.Debug)
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// NewSQLAnnotationRepository wraps an already opened database
func NewSQLAnnotationRepository(db *sql.DB, dialect Dialect, debug bool) *SQLAnnotationRepository {
	return &SQLAnnotationRepository{db: db, dialect: dialect, debug: debug}
}

// Migrate creates the annotations table when missing
func (r *SQLAnnotationRepository) Migrate(ctx context.Context) error {
	r.logStatement(r.dialect.CreateTable)
	if _, err := r.db.ExecContext(ctx, r.dialect.CreateTable); err != nil {
		return fmt.Errorf("create annotations table: %w", err)
	}
	return nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (r *SQLAnnotationRepository) DB() *sql.DB { return r.db }

func (r *SQLAnnotationRepository) Create(ctx context.Context, record *AnnotationRecord) (int64, error) {
	boxes, err := encodeBoxes(record.BoundingBoxes)
	if err != nil {
		return 0, err
	}
	image := record.ImageData
	if image == nil {
		image = []byte{}
	}

	query := fmt.Sprintf(
		`INSERT INTO annotations (image_data, bounding_boxes, meta_info) VALUES (%s, %s, %s) RETURNING id`,
		r.dialect.Placeholder(1), r.dialect.Placeholder(2), r.dialect.Placeholder(3),
	)
	r.logStatement(query)

	var id int64
	if err := r.db.QueryRowContext(ctx, query, image, boxes, nullableString(record.MetaInfo)).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert annotation: %w", err)
	}
	return id, nil
}

func (r *SQLAnnotationRepository) ListAll(ctx context.Context) ([]*AnnotationRecord, error) {
	query := `SELECT id, image_data, bounding_boxes, meta_info FROM annotations ORDER BY id`
	r.logStatement(query)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select annotations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := []*AnnotationRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate annotations: %w", err)
	}
	return records, nil
}

func (r *SQLAnnotationRepository) GetByID(ctx context.Context, id int64) (*AnnotationRecord, error) {
	query := fmt.Sprintf(
		`SELECT id, image_data, bounding_boxes, meta_info FROM annotations WHERE id = %s`,
		r.dialect.Placeholder(1),
	)
	r.logStatement(query)

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAnnotationNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *SQLAnnotationRepository) Update(ctx context.Context, id int64, patch AnnotationPatch) error {
	if patch.IsEmpty() {
		return r.ensureExists(ctx, id)
	}

	var sets []string
	var args []interface{}
	if patch.BoundingBoxes != nil {
		boxes, err := encodeBoxes(patch.BoundingBoxes)
		if err != nil {
			return err
		}
		args = append(args, boxes)
		sets = append(sets, "bounding_boxes = "+r.dialect.Placeholder(len(args)))
	}
	if patch.MetaInfo != nil {
		args = append(args, *patch.MetaInfo)
		sets = append(sets, "meta_info = "+r.dialect.Placeholder(len(args)))
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE annotations SET %s WHERE id = %s`,
		strings.Join(sets, ", "), r.dialect.Placeholder(len(args)))
	r.logStatement(query)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update annotation %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update annotation %d: %w", id, err)
	}
	if n == 0 {
		return ErrAnnotationNotFound
	}
	return nil
}

func (r *SQLAnnotationRepository) Delete(ctx context.Context, id int64) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM annotations WHERE id = %s`, r.dialect.Placeholder(1))
	r.logStatement(query)

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete annotation %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete annotation %d: %w", id, err)
	}
	return n > 0, nil
}

func (r *SQLAnnotationRepository) Close() error {
	return r.db.Close()
}

func (r *SQLAnnotationRepository) ensureExists(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`SELECT id FROM annotations WHERE id = %s`, r.dialect.Placeholder(1))
	r.logStatement(query)

	var found int64
	err := r.db.QueryRowContext(ctx, query, id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAnnotationNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup annotation %d: %w", id, err)
	}
	return nil
}

func (r *SQLAnnotationRepository) logStatement(query string) {
	if !r.debug {
		return
	}
	logger.WithFields(logrus.Fields{
		"dialect": r.dialect.Name,
		"sql":     strings.Join(strings.Fields(query), " "),
	}).Debug("Executing statement")
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*AnnotationRecord, error) {
	var (
		rec   AnnotationRecord
		boxes string
		meta  sql.NullString
	)
	if err := row.Scan(&rec.ID, &rec.ImageData, &boxes, &meta); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan annotation: %w", err)
	}
	decoded, err := decodeBoxes(boxes)
	if err != nil {
		return nil, fmt.Errorf("annotation %d: %w", rec.ID, err)
	}
	rec.BoundingBoxes = decoded
	if meta.Valid {
		value := meta.String
		rec.MetaInfo = &value
	}
	if rec.ImageData == nil {
		rec.ImageData = []byte{}
	}
	return &rec, nil
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
