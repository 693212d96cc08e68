// Package db 提供预测审计日志的SQLite存储
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// PredictionRecord 一次成功预测的审计记录
type PredictionRecord struct {
	ID           int64         `json:"id"`
	RequestID    string        `json:"request_id"`
	Features     []float64     `json:"features"`
	Prediction   []float64     `json:"prediction"`
	ModelVersion string        `json:"model_version"`
	ModelFamily  string        `json:"model_family"`
	Latency      time.Duration `json:"latency"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Store 预测审计存储
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS predictions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id TEXT NOT NULL,
    features TEXT NOT NULL,
    prediction TEXT NOT NULL,
    model_version TEXT NOT NULL,
    model_family TEXT NOT NULL,
    latency_us INTEGER NOT NULL,
    created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at);
`

// Open 打开数据库并创建表
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	database, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database failed: %w", err)
	}
	database.SetMaxOpenConns(1)

	if _, err := database.Exec(schema); err != nil {
		database.Close()
		return nil, fmt.Errorf("create tables failed: %w", err)
	}
	return &Store{db: database}, nil
}

// Record 写入一条预测记录
func (s *Store) Record(ctx context.Context, record PredictionRecord) error {
	features, err := json.Marshal(record.Features)
	if err != nil {
		return err
	}
	prediction, err := json.Marshal(record.Prediction)
	if err != nil {
		return err
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
        INSERT INTO predictions (request_id, features, prediction, model_version, model_family, latency_us, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.RequestID, string(features), string(prediction), record.ModelVersion,
		record.ModelFamily, record.Latency.Microseconds(), record.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

// Recent 按时间倒序查询最近的预测记录
func (s *Store) Recent(ctx context.Context, limit int) ([]PredictionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, request_id, features, prediction, model_version, model_family, latency_us, created_at
        FROM predictions
        ORDER BY id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []PredictionRecord
	for rows.Next() {
		var record PredictionRecord
		var features, prediction string
		var latencyUS int64
		if err := rows.Scan(&record.ID, &record.RequestID, &features, &prediction,
			&record.ModelVersion, &record.ModelFamily, &latencyUS, &record.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(features), &record.Features); err != nil {
			return nil, fmt.Errorf("decode features of record %d: %w", record.ID, err)
		}
		if err := json.Unmarshal([]byte(prediction), &record.Prediction); err != nil {
			return nil, fmt.Errorf("decode prediction of record %d: %w", record.ID, err)
		}
		record.Latency = time.Duration(latencyUS) * time.Microsecond
		records = append(records, record)
	}
	return records, rows.Err()
}

// Close 关闭数据库
func (s *Store) Close() error {
	return s.db.Close()
}
