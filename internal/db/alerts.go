package db

import (
	"context"
	"time"

	"github.com/mqtt-guard/backend/internal/model"
)

// EnsureAlertSchema - alerts 테이블 생성
func (db *Postgres) EnsureAlertSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS alerts (
			id UUID PRIMARY KEY,
			device_id UUID NOT NULL REFERENCES devices(id),
			alert_type TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			severity TEXT NOT NULL DEFAULT 'medium',
			status TEXT NOT NULL DEFAULT 'unresolved',
			analysis_summary TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			resolved_at TIMESTAMPTZ
		)
		`,
		`CREATE INDEX IF NOT EXISTS alerts_device_id_idx ON alerts(device_id)`,
		`CREATE INDEX IF NOT EXISTS alerts_status_idx ON alerts(status)`,
		`CREATE INDEX IF NOT EXISTS alerts_created_at_idx ON alerts(created_at DESC)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// InsertAlert - 새 알림 저장 (status는 항상 unresolved로 시작)
func (db *Postgres) InsertAlert(ctx context.Context, alert model.Alert) error {
	query := `
		INSERT INTO alerts (id, device_id, alert_type, description, severity, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`
	_, err := db.Pool.Exec(ctx, query,
		alert.ID,
		alert.DeviceID,
		alert.AlertType,
		alert.Description,
		alert.Severity,
		model.AlertStatusUnresolved,
	)
	return err
}

const alertColumns = `id, device_id, alert_type, description, severity, status, analysis_summary, created_at, updated_at, resolved_at`

// GetAlertList - 알림 목록 조회 (최신순)
func (db *Postgres) GetAlertList(ctx context.Context) ([]model.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts ORDER BY created_at DESC`

	rows, err := db.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.Alert
	for rows.Next() {
		var a model.Alert
		if err := rows.Scan(
			&a.ID, &a.DeviceID, &a.AlertType, &a.Description, &a.Severity,
			&a.Status, &a.AnalysisSummary, &a.CreatedAt, &a.UpdatedAt, &a.ResolvedAt,
		); err != nil {
			return nil, err
		}
		list = append(list, a)
	}

	if list == nil {
		list = []model.Alert{}
	}
	return list, nil
}

// GetAlertDetail - 알림 단건 조회
func (db *Postgres) GetAlertDetail(ctx context.Context, alertID string) (*model.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`

	var a model.Alert
	err := db.Pool.QueryRow(ctx, query, alertID).Scan(
		&a.ID, &a.DeviceID, &a.AlertType, &a.Description, &a.Severity,
		&a.Status, &a.AnalysisSummary, &a.CreatedAt, &a.UpdatedAt, &a.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateAlertStatus - 운영자의 알림 상태 변경 (resolved면 resolved_at도 기록)
func (db *Postgres) UpdateAlertStatus(ctx context.Context, alertID, status string, resolvedAt *time.Time) error {
	query := `
		UPDATE alerts
		SET status = $2, resolved_at = COALESCE($3, resolved_at), updated_at = NOW()
		WHERE id = $1
	`
	_, err := db.Pool.Exec(ctx, query, alertID, status, resolvedAt)
	return err
}

// UpdateAlertAnalysis - AI 분석 요약 저장
func (db *Postgres) UpdateAlertAnalysis(ctx context.Context, alertID, summary string) error {
	query := `
		UPDATE alerts
		SET analysis_summary = $2, updated_at = NOW()
		WHERE id = $1
	`
	_, err := db.Pool.Exec(ctx, query, alertID, summary)
	return err
}
