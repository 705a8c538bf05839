// Prometheus 카운터 정의 (수집 파이프라인 관측용)
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhooksReceived 수신한 웹훅 수 (파이프라인별)
	WebhooksReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mqttguard_webhooks_received_total",
			Help: "Total number of webhook requests received",
		},
		[]string{"pipeline"},
	)

	// PayloadParseFailures 본문 파싱 실패 수
	PayloadParseFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mqttguard_payload_parse_failures_total",
			Help: "Total number of webhook bodies that could not be parsed",
		},
	)

	// AlertsRecorded 저장된 알림 수
	AlertsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mqttguard_alerts_recorded_total",
			Help: "Total number of alerts persisted",
		},
	)

	// DevicesNotFound 디바이스 미발견 수 (정상 운영 상황)
	DevicesNotFound = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mqttguard_devices_not_found_total",
			Help: "Total number of alert webhooks with no matching device",
		},
	)

	// MetricsStored 저장된 메트릭 쓰기 수 (전략별)
	MetricsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mqttguard_metrics_stored_total",
			Help: "Total number of metric writes applied",
		},
		[]string{"kind"},
	)

	// MetricsUnrecognized 알려진 형태와 일치하지 않은 메트릭 수
	MetricsUnrecognized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mqttguard_metrics_unrecognized_total",
			Help: "Total number of metric payloads matching no known shape",
		},
	)

	// NotificationFailures 메일 전송 실패 수
	NotificationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mqttguard_notification_failures_total",
			Help: "Total number of failed owner notifications",
		},
	)
)
