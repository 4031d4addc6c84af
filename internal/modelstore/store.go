package modelstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store SQLite 模型库
type Store struct {
	db *sql.DB
}

// Open 打开（必要时创建）模型库
func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite：单连接更稳定
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close 关闭底层连接
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA foreign_keys=ON;`,
		`
CREATE TABLE IF NOT EXISTS models (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  mean REAL NOT NULL,
  stdev REAL NOT NULL,
  terms INTEGER NOT NULL,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_models_name ON models(name);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Insert 新增模型记录
func (s *Store) Insert(ctx context.Context, m ModelRecord) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO models (id,name,mean,stdev,terms,created_at,updated_at)
VALUES (?,?,?,?,?,?,?)
`, m.ID, m.Name, m.Mean, m.Stdev, m.Terms,
		m.CreatedAt.Format(time.RFC3339Nano), m.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert model: %w", err)
	}
	return nil
}

// Get 按 id 查询，不存在时返回 (nil, nil)
func (s *Store) Get(ctx context.Context, id string) (*ModelRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id,name,mean,stdev,terms,created_at,updated_at
FROM models WHERE id=?
`, id)
	var m ModelRecord
	var createdAt, updatedAt string
	if err := row.Scan(&m.ID, &m.Name, &m.Mean, &m.Stdev, &m.Terms, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	m.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &m, nil
}

// List 按创建时间倒序返回所有模型
func (s *Store) List(ctx context.Context) ([]ModelRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id,name,mean,stdev,terms,created_at,updated_at
FROM models ORDER BY created_at DESC
`)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	out := make([]ModelRecord, 0)
	for rows.Next() {
		var m ModelRecord
		var createdAt, updatedAt string
		if err := rows.Scan(&m.ID, &m.Name, &m.Mean, &m.Stdev, &m.Terms, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		m.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Delete 按 id 删除，返回是否真的删掉了一行
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM models WHERE id=?`, id)
	if err != nil {
		return false, fmt.Errorf("delete model: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
