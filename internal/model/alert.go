// 알림 레코드 및 정규화된 웹훅 알림 구조체 정의
// handler, service, db 레이어에서 공통으로 사용하기 때문에 model 레이어에 별도로 정의

package model

import "time"

// 알림 상태 값
const (
	AlertStatusUnresolved = "unresolved"
	AlertStatusResolved   = "resolved"
	AlertStatusClosed     = "closed"
)

// 심각도 값 (낮은 순)
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// NormalizedAlert - 정규화된 수신 알림
// ingest 패키지가 요청마다 생성하고 즉시 소비됨 (저장되지 않음)
//
// AlertType과 Description은 정규화 이후 절대 비어 있지 않음:
// 원본 페이로드에 해당 필드가 없으면 기본값 또는 합성된 설명으로 채워짐
type NormalizedAlert struct {
	ClientID    string
	IPAddress   string
	AlertType   string
	Description string
	Severity    string

	// IdempotencyKey: 프로듀서가 보낸 중복 방지 키 (선택, 없으면 빈 문자열)
	IdempotencyKey string
}

// Alert - DB에 저장되는 알림 레코드
type Alert struct {
	ID              string     `json:"id"`
	DeviceID        string     `json:"device_id"`
	AlertType       string     `json:"alert_type"`
	Description     string     `json:"description"`
	Severity        string     `json:"severity"`
	Status          string     `json:"status"`
	AnalysisSummary string     `json:"analysis_summary,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
}

// AlertStatusRequest - 운영자의 알림 상태 변경 요청 (resolved | closed)
type AlertStatusRequest struct {
	Status string `json:"status"`
}

// AlertListResponse - 알림 목록 응답
type AlertListResponse struct {
	Status string  `json:"status"`
	Data   []Alert `json:"data"`
}

// AlertDetailResponse - 알림 단건 응답
type AlertDetailResponse struct {
	Status string `json:"status"`
	Data   *Alert `json:"data"`
}
