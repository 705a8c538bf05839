// 보안 이벤트 웹훅 요청을 처리하는 핸들러
//
// 요청 흐름:
//  1. 프로듀서(브로커 모니터, Splunk 알림 등)가 POST /webhook/*로 전송
//  2. Content-Type에 따라 페이로드 파싱 (JSON / form / 폴백)
//  3. 페이로드 형태를 보고 알림 파이프라인 또는 메트릭 파이프라인으로 분기
//  4. service 레이어 에러를 HTTP 상태로 매핑

package handler

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mqtt-guard/backend/internal/ingest"
	"github.com/mqtt-guard/backend/internal/metrics"
	"github.com/mqtt-guard/backend/internal/model"
	"github.com/mqtt-guard/backend/internal/service"
)

// Webhook 핸들러 구조체 정의
type WebhookHandler struct {
	alertService  *service.AlertService
	metricService *service.MetricService
}

// Webhook 핸들러 객체 생성
func NewWebhookHandler(alertService *service.AlertService, metricService *service.MetricService) *WebhookHandler {
	return &WebhookHandler{
		alertService:  alertService,
		metricService: metricService,
	}
}

// AlertWebhook godoc
// @Summary Receive a security alert webhook
// @Description Accepts JSON or form-encoded payloads. Metric-shaped payloads are routed to the metric pipeline.
// @Tags webhook
// @Accept json
// @Produce json
// @Success 200 {object} model.AlertWebhookResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.AlertWebhookNotFoundResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /webhook/alerts [post]
func (h *WebhookHandler) AlertWebhook(c *gin.Context) {
	metrics.WebhooksReceived.WithLabelValues("alert").Inc()

	payload, ok := h.parsePayload(c)
	if !ok {
		return
	}

	// 프로듀서가 알림 URL로 메트릭을 보내는 경우가 있어 형태를 보고 분기함
	if ingest.LooksLikeMetric(payload) {
		h.applyMetric(c, payload)
		return
	}

	h.recordAlert(c, payload)
}

// MetricWebhook godoc
// @Summary Receive a dashboard metric webhook
// @Tags webhook
// @Accept json
// @Produce json
// @Success 200 {object} model.MetricWebhookResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /webhook/metrics [post]
func (h *WebhookHandler) MetricWebhook(c *gin.Context) {
	metrics.WebhooksReceived.WithLabelValues("metric").Inc()

	payload, ok := h.parsePayload(c)
	if !ok {
		return
	}

	h.applyMetric(c, payload)
}

// parsePayload - 요청 바디를 파싱하고 실패 시 400 응답까지 처리
func (h *WebhookHandler) parsePayload(c *gin.Context) (ingest.Payload, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Printf("Failed to read webhook body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return nil, false
	}

	payload, err := ingest.Parse(c.GetHeader("Content-Type"), body)
	if err != nil {
		metrics.PayloadParseFailures.Inc()
		log.Printf("Failed to parse webhook payload: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return nil, false
	}

	return payload, true
}

func (h *WebhookHandler) recordAlert(c *gin.Context, payload ingest.Payload) {
	normalized := ingest.NormalizeAlert(payload)
	log.Printf("Received alert webhook: alert_type=%s, client_id=%s, ip_address=%s, severity=%s",
		normalized.AlertType, normalized.ClientID, normalized.IPAddress, normalized.Severity)

	alert, err := h.alertService.ProcessAlert(c.Request.Context(), normalized)
	if err != nil {
		h.writeAlertError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.AlertWebhookResponse{
		Success:  true,
		AlertID:  alert.ID,
		DeviceID: alert.DeviceID,
	})
}

func (h *WebhookHandler) writeAlertError(c *gin.Context, err error) {
	// 중복 전달은 프로듀서 입장에서 성공임 (재전송을 멈춰야 하므로 200)
	if errors.Is(err, service.ErrDuplicateDelivery) {
		c.JSON(http.StatusOK, gin.H{"success": true, "duplicate": true})
		return
	}

	var notFound *service.DeviceNotFoundError
	if errors.As(err, &notFound) {
		c.JSON(http.StatusNotFound, model.AlertWebhookNotFoundResponse{
			Error:            "Device not found",
			ClientIdentifier: notFound.ClientID,
			IPAddress:        notFound.IPAddress,
		})
		return
	}

	log.Printf("Failed to process alert webhook: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record alert"})
}

func (h *WebhookHandler) applyMetric(c *gin.Context, payload ingest.Payload) {
	sample, err := ingest.ClassifyMetric(payload)
	if err != nil {
		// 어떤 메트릭 형태로도 분류되지 않음: 웹훅 재전송을 막기 위해 200
		metrics.MetricsUnrecognized.Inc()
		log.Printf("Unrecognized metric shape, skipping: %v", err)
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "Unrecognized metric shape"})
		return
	}

	pointsStored, err := h.metricService.Apply(c.Request.Context(), sample)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateDelivery) {
			c.JSON(http.StatusOK, gin.H{"success": true, "duplicate": true})
			return
		}
		log.Printf("Failed to store metric (metric_key=%s): %v", sample.Key, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store metric"})
		return
	}

	log.Printf("Stored metric: metric_key=%s, kind=%s, points=%d", sample.Key, sample.Kind, pointsStored)
	c.JSON(http.StatusOK, model.MetricWebhookResponse{
		Success:      true,
		MetricKey:    sample.Key,
		PointsStored: pointsStored,
	})
}
