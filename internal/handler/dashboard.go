// 대시보드 조회 API 핸들러
// 수집 파이프라인이 쌓은 디바이스/알림/메트릭을 운영자 UI에 제공함

package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/mqtt-guard/backend/internal/db"
	"github.com/mqtt-guard/backend/internal/model"
	"github.com/mqtt-guard/backend/internal/service"
)

// Dashboard 핸들러 구조체 정의
type DashboardHandler struct {
	db       *db.Postgres
	ownerID  string
	analysis *service.AnalysisService
}

// Dashboard 핸들러 객체 생성 (analysis는 nil 허용)
func NewDashboardHandler(store *db.Postgres, ownerID string, analysis *service.AnalysisService) *DashboardHandler {
	return &DashboardHandler{
		db:       store,
		ownerID:  ownerID,
		analysis: analysis,
	}
}

// ListDevices godoc
// @Summary List monitored devices
// @Tags devices
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.DeviceListResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/devices [get]
func (h *DashboardHandler) ListDevices(c *gin.Context) {
	devices, err := h.db.GetDeviceList(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, model.DeviceListResponse{Status: "success", Data: devices})
}

// UpdateDeviceStatus godoc
// @Summary Update a device's status
// @Description Operator action: mark a device safe or blocked.
// @Tags devices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Device ID"
// @Param request body model.DeviceStatusRequest true "New status"
// @Success 200 {object} model.StatusResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/devices/{id}/status [patch]
func (h *DashboardHandler) UpdateDeviceStatus(c *gin.Context) {
	var req model.DeviceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.Status != model.DeviceStatusSafe && req.Status != model.DeviceStatusBlocked {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be safe or blocked"})
		return
	}

	if err := h.db.UpdateDeviceStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, model.StatusResponse{Status: "success"})
}

// ListAlerts godoc
// @Summary List alerts
// @Tags alerts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.AlertListResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/alerts [get]
func (h *DashboardHandler) ListAlerts(c *gin.Context) {
	alerts, err := h.db.GetAlertList(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, model.AlertListResponse{Status: "success", Data: alerts})
}

// GetAlert godoc
// @Summary Get an alert by ID
// @Tags alerts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Alert ID"
// @Success 200 {object} model.AlertDetailResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/alerts/{id} [get]
func (h *DashboardHandler) GetAlert(c *gin.Context) {
	alert, err := h.db.GetAlertDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, model.AlertDetailResponse{Status: "success", Data: alert})
}

// UpdateAlertStatus godoc
// @Summary Update an alert's status
// @Tags alerts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Alert ID"
// @Param request body model.AlertStatusRequest true "New status (resolved | closed)"
// @Success 200 {object} model.StatusResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/alerts/{id}/status [patch]
func (h *DashboardHandler) UpdateAlertStatus(c *gin.Context) {
	var req model.AlertStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.Status != model.AlertStatusResolved && req.Status != model.AlertStatusClosed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be resolved or closed"})
		return
	}

	var resolvedAt *time.Time
	if req.Status == model.AlertStatusResolved {
		now := time.Now()
		resolvedAt = &now
	}

	if err := h.db.UpdateAlertStatus(c.Request.Context(), c.Param("id"), req.Status, resolvedAt); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, model.StatusResponse{Status: "success"})
}

// ListMetrics godoc
// @Summary List dashboard metrics
// @Tags metrics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.MetricListResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/metrics [get]
func (h *DashboardHandler) ListMetrics(c *gin.Context) {
	stored, err := h.db.ListMetrics(c.Request.Context(), h.ownerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, model.MetricListResponse{Status: "success", Data: stored})
}

// GetMetric godoc
// @Summary Get a dashboard metric by key
// @Tags metrics
// @Produce json
// @Security BearerAuth
// @Param key path string true "Metric key"
// @Success 200 {object} model.MetricDetailResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/metrics/{key} [get]
func (h *DashboardHandler) GetMetric(c *gin.Context) {
	stored, err := h.db.GetMetric(c.Request.Context(), h.ownerID, c.Param("key"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "metric not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, model.MetricDetailResponse{Status: "success", Data: stored})
}

// AnalyzeAlert godoc
// @Summary Run AI analysis for an alert
// @Tags alerts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Alert ID"
// @Success 200 {object} model.AnalysisResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Failure 503 {object} model.ErrorResponse
// @Router /api/v1/alerts/{id}/analyze [post]
func (h *DashboardHandler) AnalyzeAlert(c *gin.Context) {
	if h.analysis == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI analysis is not configured"})
		return
	}

	alertID := c.Param("id")
	summary, err := h.analysis.AnalyzeAlert(c.Request.Context(), alertID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
			return
		}
		log.Printf("Failed to analyze alert (alert_id=%s): %v", alertID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.AnalysisResponse{
		Status:  "success",
		AlertID: alertID,
		Summary: summary,
	})
}

// SimilarAlerts godoc
// @Summary Find similar past alerts
// @Description Cosine-distance search over stored alert embeddings.
// @Tags alerts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Alert ID"
// @Success 200 {object} model.SimilarAlertsResponse
// @Failure 500 {object} model.ErrorResponse
// @Failure 503 {object} model.ErrorResponse
// @Router /api/v1/alerts/{id}/similar [get]
func (h *DashboardHandler) SimilarAlerts(c *gin.Context) {
	if h.analysis == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI analysis is not configured"})
		return
	}

	similar, err := h.analysis.SimilarAlerts(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, model.SimilarAlertsResponse{Status: "success", Data: similar})
}
