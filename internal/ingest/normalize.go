// 알림 페이로드 정규화
//
// 프로듀서 버전마다 필드 이름이 다르기 때문에 논리 필드별로
// 후보 경로 목록을 선언해 두고 순서대로 시도함 (fallback chain)

package ingest

import (
	"fmt"
	"strings"

	"github.com/mqtt-guard/backend/internal/model"
)

// 필드별 후보 경로 (앞에 있을수록 우선)
var (
	clientIDPaths = []string{
		"payload.client_id",
		"result.client_id",
		"result.clientid",
		"client_id",
	}
	ipAddressPaths = []string{
		"payload.ip_address",
		"result.src_ip",
		"result.ip",
		"ip_address",
	}
	alertTypePaths = []string{
		"payload.alert_type",
		"result.alert_type",
		"payload.search_name",
		"search_name",
	}
	descriptionPaths = []string{
		"payload.description",
		"result.description",
		"result.message",
		"description",
	}
	severityPaths = []string{
		"payload.severity",
		"result.severity",
		"severity",
	}
	idempotencyKeyPaths = []string{
		"idempotency_key",
		"payload.idempotency_key",
		"sid",
	}

	// description 합성에 쓰이는 구조화 필드
	failedAttemptPaths = []string{
		"result.failed_attempts",
		"result.total_failed_attempts",
		"payload.failed_attempts",
	}
)

const (
	defaultAlertType = "Security Alert"
	defaultSeverity  = model.SeverityMedium
)

// NormalizeAlert - 임의 형태의 페이로드를 NormalizedAlert로 변환
// AlertType과 Description은 항상 채워짐 (빈 페이로드라도)
func NormalizeAlert(p Payload) model.NormalizedAlert {
	clientID, _ := firstString(p, clientIDPaths)
	ipAddress, _ := firstString(p, ipAddressPaths)

	alertType, ok := firstString(p, alertTypePaths)
	if !ok {
		alertType = defaultAlertType
	}

	description, ok := firstString(p, descriptionPaths)
	if !ok {
		description = synthesizeDescription(p, alertType, clientID, ipAddress)
	}

	idempotencyKey, _ := firstString(p, idempotencyKeyPaths)

	return model.NormalizedAlert{
		ClientID:       clientID,
		IPAddress:      ipAddress,
		AlertType:      alertType,
		Description:    description,
		Severity:       normalizeSeverity(p),
		IdempotencyKey: idempotencyKey,
	}
}

// synthesizeDescription - description 필드가 없을 때 구조화 필드로 설명 생성
// 절대 빈 문자열을 반환하지 않음
func synthesizeDescription(p Payload, alertType, clientID, ipAddress string) string {
	source := clientID
	if source == "" {
		source = ipAddress
	}

	if attempts, ok := firstNumber(p, failedAttemptPaths); ok && source != "" {
		return fmt.Sprintf("%s: %d failed attempts from %s", alertType, int64(attempts), source)
	}
	if source != "" {
		return fmt.Sprintf("%s reported for %s (no details provided)", alertType, source)
	}
	return fmt.Sprintf("%s received without details", alertType)
}

func normalizeSeverity(p Payload) string {
	raw, ok := firstString(p, severityPaths)
	if !ok {
		return defaultSeverity
	}

	switch strings.ToLower(raw) {
	case model.SeverityLow, model.SeverityMedium, model.SeverityHigh, model.SeverityCritical:
		return strings.ToLower(raw)
	case "info", "informational":
		return model.SeverityLow
	case "warning", "warn":
		return model.SeverityMedium
	case "crit", "severe":
		return model.SeverityCritical
	default:
		return defaultSeverity
	}
}

// LooksLikeMetric - 메트릭 파이프라인으로 보낼 페이로드인지 판별
//
// ClassifyMetric이 받아들이는 형태와 정확히 같은 조건을 써야 함:
// 더 느슨하면 알림 페이로드가 메트릭으로 새서 버려질 수 있음
// (예: failed_attempts 숫자 필드를 가진 알림)
func LooksLikeMetric(p Payload) bool {
	key, ok := firstString(p, metricKeyPaths)
	if !ok {
		return false
	}
	if _, known := rankedKeys[key]; known {
		if _, ok := dataArray(p); ok {
			return true
		}
	}
	if paths, known := snapshotFieldPaths[key]; known {
		if _, ok := firstNumber(p, paths); ok {
			return true
		}
	}
	if _, ok := firstNumber(p, seriesValuePaths); ok {
		return true
	}
	return false
}
