// dashboard_metrics 테이블 접근
//
// 모든 쓰기는 (owner_id, metric_key) 복합 키 기준 upsert임.
// 이 파이프라인은 행을 삭제하지 않음 (보존은 rolling window 상한으로만 관리)

package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mqtt-guard/backend/internal/model"
)

// EnsureMetricSchema - dashboard_metrics 테이블 생성
func (db *Postgres) EnsureMetricSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS dashboard_metrics (
			owner_id TEXT NOT NULL,
			metric_key TEXT NOT NULL,
			value JSONB NOT NULL DEFAULT 'null',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (owner_id, metric_key)
		)
	`
	if _, err := db.Pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create dashboard_metrics table: %w", err)
	}
	return nil
}

// UpsertMetric - 정규화된 값 전체를 한 번에 upsert (부분 쓰기 없음)
func (db *Postgres) UpsertMetric(ctx context.Context, ownerID, metricKey string, value json.RawMessage) error {
	query := `
		INSERT INTO dashboard_metrics (owner_id, metric_key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (owner_id, metric_key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()
	`
	if _, err := db.Pool.Exec(ctx, query, ownerID, metricKey, value); err != nil {
		return fmt.Errorf("failed to upsert metric %s: %w", metricKey, err)
	}
	return nil
}

// GetMetric - 단일 메트릭 조회 (없으면 pgx.ErrNoRows)
func (db *Postgres) GetMetric(ctx context.Context, ownerID, metricKey string) (*model.StoredMetric, error) {
	query := `
		SELECT owner_id, metric_key, value, updated_at
		FROM dashboard_metrics
		WHERE owner_id = $1 AND metric_key = $2
	`
	var m model.StoredMetric
	err := db.Pool.QueryRow(ctx, query, ownerID, metricKey).Scan(
		&m.OwnerID,
		&m.MetricKey,
		&m.Value,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMetrics - 소유자의 전체 메트릭 조회
func (db *Postgres) ListMetrics(ctx context.Context, ownerID string) ([]model.StoredMetric, error) {
	query := `
		SELECT owner_id, metric_key, value, updated_at
		FROM dashboard_metrics
		WHERE owner_id = $1
		ORDER BY metric_key
	`
	rows, err := db.Pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.StoredMetric
	for rows.Next() {
		var m model.StoredMetric
		if err := rows.Scan(&m.OwnerID, &m.MetricKey, &m.Value, &m.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}

	if list == nil {
		list = []model.StoredMetric{}
	}
	return list, nil
}
