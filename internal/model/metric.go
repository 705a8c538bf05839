// 대시보드 메트릭의 정규화/저장 형태 정의
//
// 수신 페이로드는 세 가지 형태 중 하나로 분류됨:
//   - Snapshot: 키당 단일 값 (매번 덮어씀)
//   - RollingSeries: 최대 60개 포인트의 append-and-trim 시계열
//   - RankedList: 5개 고정 리더보드 (매번 통째로 교체)

package model

import (
	"encoding/json"
	"time"
)

// MetricKind - 분류 결과 태그
type MetricKind string

const (
	MetricKindSnapshot      MetricKind = "snapshot"
	MetricKindRollingSeries MetricKind = "rolling_series"
	MetricKindRankedList    MetricKind = "ranked_list"
)

// RollingSeries 보관 포인트 수 상한 (FIFO, 초과분은 앞에서 제거)
const RollingWindowSize = 60

// RankedList 저장 형태의 고정 길이 (부족분은 count 0으로 패딩)
const RankedListSize = 5

// MetricPoint - 시계열/스냅샷 포인트 (time은 epoch millis)
type MetricPoint struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// RankedEntry - 리더보드 항목
type RankedEntry struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// RankedListValue - RankedList의 저장 형태 (쓰기 시각 포함)
type RankedListValue struct {
	Time    int64         `json:"time"`
	Entries []RankedEntry `json:"entries"`
}

// MetricSample - 분류된 수신 메트릭 (Kind에 따라 유효 필드가 다름)
//
//   - Snapshot, RollingSeries: Point 사용
//   - RankedList: Time, Entries, PlaceholderLabel 사용
type MetricSample struct {
	Kind MetricKind
	Key  string

	Point MetricPoint

	Time    int64
	Entries []RankedEntry

	// PlaceholderLabel: 패딩 항목의 라벨 접두어 (예: "Client", "Topic")
	PlaceholderLabel string

	// IdempotencyKey: 프로듀서가 보낸 중복 방지 키 (선택)
	IdempotencyKey string
}

// StoredMetric - dashboard_metrics 행
type StoredMetric struct {
	OwnerID   string          `json:"owner_id"`
	MetricKey string          `json:"metric_key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// MetricListResponse - 메트릭 목록 응답
type MetricListResponse struct {
	Status string         `json:"status"`
	Data   []StoredMetric `json:"data"`
}

// MetricDetailResponse - 메트릭 단건 응답
type MetricDetailResponse struct {
	Status string        `json:"status"`
	Data   *StoredMetric `json:"data"`
}
