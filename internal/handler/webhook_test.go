package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/mqtt-guard/backend/internal/model"
	"github.com/mqtt-guard/backend/internal/service"
)

type stubAlertRepo struct {
	device   *model.Device
	inserted int
}

func (s *stubAlertRepo) GetDeviceByClientID(ctx context.Context, clientID string) (*model.Device, error) {
	if s.device != nil && s.device.ClientID == clientID {
		return s.device, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *stubAlertRepo) GetDeviceByIP(ctx context.Context, ipAddress string) (*model.Device, error) {
	if s.device != nil && s.device.IPAddress == ipAddress {
		return s.device, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *stubAlertRepo) InsertAlert(ctx context.Context, alert model.Alert) error {
	s.inserted++
	return nil
}

func (s *stubAlertRepo) UpdateDeviceStatus(ctx context.Context, deviceID, status string) error {
	return nil
}

func (s *stubAlertRepo) TouchDeviceLastSeen(ctx context.Context, deviceID string, seenAt time.Time) error {
	return nil
}

type stubMetricRepo struct {
	values map[string]json.RawMessage
}

func (s *stubMetricRepo) UpsertMetric(ctx context.Context, ownerID, metricKey string, value json.RawMessage) error {
	s.values[metricKey] = value
	return nil
}

func (s *stubMetricRepo) GetMetric(ctx context.Context, ownerID, metricKey string) (*model.StoredMetric, error) {
	value, ok := s.values[metricKey]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &model.StoredMetric{OwnerID: ownerID, MetricKey: metricKey, Value: value}, nil
}

func newWebhookRouter(alertRepo *stubAlertRepo, metricRepo *stubMetricRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewWebhookHandler(
		service.NewAlertService(alertRepo, nil, nil, nil),
		service.NewMetricService(metricRepo, "default", nil),
	)
	r := gin.New()
	r.POST("/webhook/alerts", h.AlertWebhook)
	r.POST("/webhook/metrics", h.MetricWebhook)
	return r
}

func postWebhook(r *gin.Engine, path, contentType, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAlertWebhookMalformedPayload(t *testing.T) {
	r := newWebhookRouter(&stubAlertRepo{}, &stubMetricRepo{values: map[string]json.RawMessage{}})

	w := postWebhook(r, "/webhook/alerts", "application/json", "{not json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAlertWebhookDeviceNotFound(t *testing.T) {
	repo := &stubAlertRepo{}
	r := newWebhookRouter(repo, &stubMetricRepo{values: map[string]json.RawMessage{}})

	body := `{"client_id": "ghost", "ip_address": "203.0.113.5", "alert_type": "Brute Force"}`
	w := postWebhook(r, "/webhook/alerts", "application/json", body)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d (body: %s)", w.Code, w.Body.String())
	}

	var resp model.AlertWebhookNotFoundResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error == "" || resp.ClientIdentifier != "ghost" || resp.IPAddress != "203.0.113.5" {
		t.Errorf("identifiers not echoed back: %+v", resp)
	}
	if repo.inserted != 0 {
		t.Errorf("inserted %d alerts, want 0", repo.inserted)
	}
}

func TestAlertWebhookRecorded(t *testing.T) {
	repo := &stubAlertRepo{device: &model.Device{ID: "dev-a", ClientID: "sensor-7"}}
	r := newWebhookRouter(repo, &stubMetricRepo{values: map[string]json.RawMessage{}})

	body := `{"payload": {"client_id": "sensor-7", "alert_type": "Brute Force", "severity": "high"}}`
	w := postWebhook(r, "/webhook/alerts", "application/json", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", w.Code, w.Body.String())
	}

	var resp model.AlertWebhookResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.AlertID == "" || resp.DeviceID != "dev-a" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if repo.inserted != 1 {
		t.Errorf("inserted %d alerts, want 1", repo.inserted)
	}
}

func TestMetricWebhookRollingSeries(t *testing.T) {
	metricRepo := &stubMetricRepo{values: map[string]json.RawMessage{}}
	r := newWebhookRouter(&stubAlertRepo{}, metricRepo)

	body := `{"search_name": "Dashboard Data: Message Throughput (New)", "result": {"time": "1700000000", "value": "25"}}`
	w := postWebhook(r, "/webhook/metrics", "application/json", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", w.Code, w.Body.String())
	}

	var resp model.MetricWebhookResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.MetricKey != "Dashboard Data: Message Throughput (New)" || resp.PointsStored != 1 {
		t.Errorf("unexpected response: %+v", resp)
	}

	var points []model.MetricPoint
	if err := json.Unmarshal(metricRepo.values[resp.MetricKey], &points); err != nil {
		t.Fatal(err)
	}
	if len(points) != 1 || points[0].Time != 1700000000000 || points[0].Value != 25 {
		t.Errorf("stored points = %+v", points)
	}
}

func TestAlertWebhookRoutesMetricShapedPayload(t *testing.T) {
	metricRepo := &stubMetricRepo{values: map[string]json.RawMessage{}}
	r := newWebhookRouter(&stubAlertRepo{}, metricRepo)

	// 메트릭 형태의 페이로드가 알림 URL로 와도 메트릭 파이프라인으로 가야 함
	body := `{"metric_key": "top_targeted_clients", "data": [{"targeted_client": "dev-1", "failure_count": "150"}], "timestamp": 1700000000000}`
	w := postWebhook(r, "/webhook/alerts", "application/json", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", w.Code, w.Body.String())
	}

	var stored model.RankedListValue
	if err := json.Unmarshal(metricRepo.values["top_targeted_clients"], &stored); err != nil {
		t.Fatalf("ranked list not stored: %v", err)
	}
	if len(stored.Entries) != model.RankedListSize {
		t.Fatalf("len(entries) = %d, want %d", len(stored.Entries), model.RankedListSize)
	}
	if stored.Entries[0].Label != "dev-1" || stored.Entries[0].Count != 150 {
		t.Errorf("entries[0] = %+v", stored.Entries[0])
	}
}

func TestMetricWebhookUnrecognizedShape(t *testing.T) {
	metricRepo := &stubMetricRepo{values: map[string]json.RawMessage{}}
	r := newWebhookRouter(&stubAlertRepo{}, metricRepo)

	// 키는 있지만 값을 찾을 수 없는 페이로드: 재전송을 막기 위해 200
	body := `{"metric_key": "mystery_metric", "note": "no numeric field anywhere"}`
	w := postWebhook(r, "/webhook/metrics", "application/json", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", w.Code, w.Body.String())
	}

	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Success || resp.Error == "" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if len(metricRepo.values) != 0 {
		t.Errorf("stored %d metrics, want 0", len(metricRepo.values))
	}
}

func TestMetricWebhookFormEncoded(t *testing.T) {
	metricRepo := &stubMetricRepo{values: map[string]json.RawMessage{}}
	r := newWebhookRouter(&stubAlertRepo{}, metricRepo)

	body := `search_name=successful_connections_24h&result=%7B%22time%22%3A%221700000000%22%2C%22successful_connections%22%3A%221850%22%7D`
	w := postWebhook(r, "/webhook/metrics", "application/x-www-form-urlencoded", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", w.Code, w.Body.String())
	}

	var point model.MetricPoint
	if err := json.Unmarshal(metricRepo.values["successful_connections_24h"], &point); err != nil {
		t.Fatalf("snapshot not stored: %v", err)
	}
	if point.Time != 1700000000000 || point.Value != 1850 {
		t.Errorf("stored point = %+v", point)
	}
}

// stubDedupe - 인메모리 idempotency key 저장소
type stubDedupe struct {
	seen map[string]bool
}

func (s *stubDedupe) FirstSeen(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return true, nil
	}
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	return true, nil
}

func (s *stubDedupe) Forget(ctx context.Context, key string) error {
	delete(s.seen, key)
	return nil
}

func TestAlertWebhookDuplicateDelivery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &stubAlertRepo{device: &model.Device{ID: "dev-a", ClientID: "sensor-7"}}
	h := NewWebhookHandler(
		service.NewAlertService(repo, nil, nil, &stubDedupe{seen: map[string]bool{}}),
		service.NewMetricService(&stubMetricRepo{values: map[string]json.RawMessage{}}, "default", nil),
	)
	r := gin.New()
	r.POST("/webhook/alerts", h.AlertWebhook)

	body := `{"client_id": "sensor-7", "alert_type": "Brute Force", "idempotency_key": "d-1"}`
	if w := postWebhook(r, "/webhook/alerts", "application/json", body); w.Code != http.StatusOK {
		t.Fatalf("first delivery: expected 200, got %d (body: %s)", w.Code, w.Body.String())
	}

	// 같은 키 재전송은 200으로 확인 응답하되 새 레코드는 만들지 않음
	w := postWebhook(r, "/webhook/alerts", "application/json", body)
	if w.Code != http.StatusOK {
		t.Fatalf("duplicate delivery: expected 200, got %d (body: %s)", w.Code, w.Body.String())
	}
	var resp struct {
		Success   bool `json:"success"`
		Duplicate bool `json:"duplicate"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || !resp.Duplicate {
		t.Errorf("duplicate response = %s, want success and duplicate true", w.Body.String())
	}
	if repo.inserted != 1 {
		t.Errorf("inserted %d alerts, want 1", repo.inserted)
	}
}
