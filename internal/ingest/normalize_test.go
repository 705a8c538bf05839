package ingest

import (
	"testing"

	"github.com/mqtt-guard/backend/internal/model"
)

func TestNormalizeAlertFallbackChain(t *testing.T) {
	tests := []struct {
		name         string
		payload      Payload
		wantType     string
		wantClientID string
		wantSeverity string
	}{
		{
			name: "new-producer-format",
			payload: Payload{
				"payload": map[string]any{
					"alert_type": "Brute Force Attack",
					"client_id":  "sensor-01",
					"severity":   "high",
				},
			},
			wantType:     "Brute Force Attack",
			wantClientID: "sensor-01",
			wantSeverity: "high",
		},
		{
			name: "legacy-result-format",
			payload: Payload{
				"result": map[string]any{
					"alert_type": "Unauthorized Topic Access",
					"client_id":  "sensor-02",
				},
			},
			wantType:     "Unauthorized Topic Access",
			wantClientID: "sensor-02",
			wantSeverity: model.SeverityMedium,
		},
		{
			name: "search-name-as-alert-type",
			payload: Payload{
				"search_name": "MQTT Failed Auth Spike",
				"result": map[string]any{
					"src_ip": "10.0.0.9",
				},
			},
			wantType:     "MQTT Failed Auth Spike",
			wantSeverity: model.SeverityMedium,
		},
		{
			name:         "empty-object-still-total",
			payload:      Payload{},
			wantType:     "Security Alert",
			wantSeverity: model.SeverityMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeAlert(tt.payload)
			if got.AlertType != tt.wantType {
				t.Errorf("AlertType = %q, want %q", got.AlertType, tt.wantType)
			}
			if got.ClientID != tt.wantClientID {
				t.Errorf("ClientID = %q, want %q", got.ClientID, tt.wantClientID)
			}
			if got.Severity != tt.wantSeverity {
				t.Errorf("Severity = %q, want %q", got.Severity, tt.wantSeverity)
			}
			// 정규화 이후 필수 필드는 절대 비어 있으면 안 됨
			if got.AlertType == "" || got.Description == "" {
				t.Errorf("required field empty after normalization: %+v", got)
			}
		})
	}
}

func TestNormalizeAlertSynthesizesDescription(t *testing.T) {
	p := Payload{
		"search_name": "Failed Auth Burst",
		"result": map[string]any{
			"client_id":       "cam-07",
			"failed_attempts": "42",
		},
	}

	got := NormalizeAlert(p)
	want := "Failed Auth Burst: 42 failed attempts from cam-07"
	if got.Description != want {
		t.Errorf("Description = %q, want %q", got.Description, want)
	}
}

func TestNormalizeSeverityMapping(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"critical", model.SeverityCritical},
		{"HIGH", model.SeverityHigh},
		{"warning", model.SeverityMedium},
		{"info", model.SeverityLow},
		{"garbage", model.SeverityMedium},
	}
	for _, tt := range tests {
		p := Payload{"severity": tt.raw}
		if got := NormalizeAlert(p).Severity; got != tt.want {
			t.Errorf("severity %q -> %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestLooksLikeMetric(t *testing.T) {
	metric := Payload{
		"search_name": "Dashboard Data: Message Throughput (New)",
		"result":      map[string]any{"time": "1700000000", "value": "25"},
	}
	if !LooksLikeMetric(metric) {
		t.Error("expected metric payload to be recognized")
	}

	alert := Payload{
		"payload": map[string]any{"alert_type": "Brute Force", "client_id": "x"},
	}
	if LooksLikeMetric(alert) {
		t.Error("alert payload must not look like a metric")
	}

	// 숫자 필드를 가진 알림이 메트릭으로 새면 안 됨
	alertWithNumbers := Payload{
		"search_name": "Failed Auth Burst",
		"result":      map[string]any{"client_id": "cam-07", "failed_attempts": "42"},
	}
	if LooksLikeMetric(alertWithNumbers) {
		t.Error("alert with numeric detail fields must not look like a metric")
	}
}
