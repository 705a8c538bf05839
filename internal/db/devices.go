package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mqtt-guard/backend/internal/model"
)

// EnsureDeviceSchema - devices 테이블 생성
func (db *Postgres) EnsureDeviceSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS devices (
			id UUID PRIMARY KEY,
			client_id TEXT NOT NULL UNIQUE,
			ip_address TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'safe',
			owner_email TEXT NOT NULL DEFAULT '',
			last_seen TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS devices_ip_address_idx ON devices(ip_address) WHERE ip_address != ''`,
		`CREATE INDEX IF NOT EXISTS devices_status_idx ON devices(status)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

const deviceColumns = `id, client_id, ip_address, name, status, owner_email, last_seen, created_at, updated_at`

func scanDevice(row pgx.Row) (*model.Device, error) {
	var d model.Device
	err := row.Scan(
		&d.ID,
		&d.ClientID,
		&d.IPAddress,
		&d.Name,
		&d.Status,
		&d.OwnerEmail,
		&d.LastSeen,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDeviceByClientID - client_id로 디바이스 조회
func (db *Postgres) GetDeviceByClientID(ctx context.Context, clientID string) (*model.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE client_id = $1`
	return scanDevice(db.Pool.QueryRow(ctx, query, clientID))
}

// GetDeviceByIP - ip_address로 디바이스 조회 (가장 최근 것)
func (db *Postgres) GetDeviceByIP(ctx context.Context, ipAddress string) (*model.Device, error) {
	query := `
		SELECT ` + deviceColumns + `
		FROM devices
		WHERE ip_address = $1
		ORDER BY updated_at DESC
		LIMIT 1
	`
	return scanDevice(db.Pool.QueryRow(ctx, query, ipAddress))
}

// GetDeviceList - 디바이스 목록 조회
func (db *Postgres) GetDeviceList(ctx context.Context) ([]model.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices ORDER BY created_at DESC`

	rows, err := db.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *d)
	}

	if list == nil {
		list = []model.Device{}
	}
	return list, nil
}

// UpdateDeviceStatus - 디바이스 상태 변경 (safe | threat | blocked)
func (db *Postgres) UpdateDeviceStatus(ctx context.Context, deviceID, status string) error {
	query := `
		UPDATE devices
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`
	_, err := db.Pool.Exec(ctx, query, deviceID, status)
	return err
}

// TouchDeviceLastSeen - 알림 수신 시 last_seen 갱신
func (db *Postgres) TouchDeviceLastSeen(ctx context.Context, deviceID string, seenAt time.Time) error {
	query := `
		UPDATE devices
		SET last_seen = $2, updated_at = NOW()
		WHERE id = $1
	`
	_, err := db.Pool.Exec(ctx, query, deviceID, seenAt)
	return err
}
