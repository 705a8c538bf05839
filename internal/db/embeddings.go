package db

import (
	"context"

	"github.com/mqtt-guard/backend/internal/model"
	"github.com/pgvector/pgvector-go"
)

// EnsureEmbeddingSchema - alert_embeddings 테이블 생성 (pgvector 확장 필요)
func (db *Postgres) EnsureEmbeddingSchema(ctx context.Context) error {
	queries := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`
		CREATE TABLE IF NOT EXISTS alert_embeddings (
			id BIGSERIAL PRIMARY KEY,
			alert_id UUID NOT NULL REFERENCES alerts(id),
			content TEXT NOT NULL DEFAULT '',
			embedding vector(768),
			model TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS alert_embeddings_alert_id_idx ON alert_embeddings(alert_id)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// InsertAlertEmbedding - 알림 임베딩 저장
func (db *Postgres) InsertAlertEmbedding(ctx context.Context, alertID, content, embeddingModel string, vector []float32) (int64, error) {
	query := `
		INSERT INTO alert_embeddings (alert_id, content, embedding, model)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var id int64
	err := db.Pool.QueryRow(ctx, query, alertID, content, pgvector.NewVector(vector), embeddingModel).Scan(&id)
	return id, err
}

// FindSimilarAlerts - 코사인 거리 기준 과거 유사 알림 top-k 조회 (자기 자신 제외)
func (db *Postgres) FindSimilarAlerts(ctx context.Context, alertID string, vector []float32, limit int) ([]model.SimilarAlert, error) {
	query := `
		SELECT e.alert_id, a.alert_type, a.severity, e.content, e.embedding <=> $2 AS distance
		FROM alert_embeddings e
		JOIN alerts a ON a.id = e.alert_id
		WHERE e.alert_id != $1
		ORDER BY distance
		LIMIT $3
	`
	rows, err := db.Pool.Query(ctx, query, alertID, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.SimilarAlert
	for rows.Next() {
		var s model.SimilarAlert
		if err := rows.Scan(&s.AlertID, &s.AlertType, &s.Severity, &s.Content, &s.Distance); err != nil {
			return nil, err
		}
		list = append(list, s)
	}

	if list == nil {
		list = []model.SimilarAlert{}
	}
	return list, nil
}
