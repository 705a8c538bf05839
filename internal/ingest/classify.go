// 메트릭 페이로드 분류
//
// 순서가 있는 규칙 테이블로 first-match-wins 분류를 수행함.
// 일부 페이로드는 구조적으로 둘 이상의 형태를 만족할 수 있어서 순서가 의미를 가짐:
//  1. RankedList: 알려진 리더보드 키 + data 배열
//  2. Snapshot: 알려진 단일값 키 + 해당 숫자 필드
//  3. RollingSeries: 숫자 value 필드 (time/timestamp 동반)
//  4. 그 외 → ErrUnrecognizedMetric
//
// 분류는 정규화된 필드에 대한 순수 함수임 (같은 페이로드 → 항상 같은 전략)

package ingest

import (
	"fmt"

	"github.com/mqtt-guard/backend/internal/model"
)

// 메트릭 키 후보 경로 (metric_key가 신형, search_name이 구형 프로듀서)
var metricKeyPaths = []string{
	"metric_key",
	"payload.metric_key",
	"search_name",
	"payload.search_name",
}

// rankedKeySpec - 리더보드 키별 항목 필드와 패딩 라벨
type rankedKeySpec struct {
	labelPaths  []string
	countPaths  []string
	placeholder string
}

// 알려진 리더보드 키 (정확한 문자열 일치, 대소문자 구분)
var rankedKeys = map[string]rankedKeySpec{
	"top_targeted_clients": {
		labelPaths:  []string{"targeted_client", "client_id", "label"},
		countPaths:  []string{"failure_count", "count"},
		placeholder: "Client",
	},
	"top_busiest_topics": {
		labelPaths:  []string{"topic", "label"},
		countPaths:  []string{"message_count", "count"},
		placeholder: "Topic",
	},
}

// 알려진 단일값(스냅샷) 키와 값이 들어오는 필드
var snapshotFieldPaths = map[string][]string{
	"failed_auth_attempts_24h": {
		"result.total_failed_attempts",
		"payload.total_failed_attempts",
		"total_failed_attempts",
	},
	"successful_connections_24h": {
		"result.successful_connections",
		"payload.successful_connections",
		"successful_connections",
	},
}

// RollingSeries 기본 형태의 값/시각 경로
var (
	seriesValuePaths = []string{
		"result.value",
		"payload.value",
		"value",
	}
	seriesTimePaths = []string{
		"result.time",
		"result.timestamp",
		"payload.time",
		"time",
		"timestamp",
	}
)

// ClassifyMetric - 페이로드를 MetricSample로 분류
func ClassifyMetric(p Payload) (model.MetricSample, error) {
	key, ok := firstString(p, metricKeyPaths)
	if !ok {
		return model.MetricSample{}, fmt.Errorf("%w: no metric key", ErrUnrecognizedMetric)
	}

	idempotencyKey, _ := firstString(p, idempotencyKeyPaths)

	// 1. RankedList
	if spec, known := rankedKeys[key]; known {
		if entries, found := dataArray(p); found {
			return model.MetricSample{
				Kind:             model.MetricKindRankedList,
				Key:              key,
				Time:             sampleTime(p),
				Entries:          rankedEntries(entries, spec),
				PlaceholderLabel: spec.placeholder,
				IdempotencyKey:   idempotencyKey,
			}, nil
		}
	}

	// 2. Snapshot
	if paths, known := snapshotFieldPaths[key]; known {
		if value, found := firstNumber(p, paths); found {
			return model.MetricSample{
				Kind:           model.MetricKindSnapshot,
				Key:            key,
				Point:          model.MetricPoint{Time: sampleTime(p), Value: value},
				IdempotencyKey: idempotencyKey,
			}, nil
		}
	}

	// 3. RollingSeries (기본 형태)
	if value, found := firstNumber(p, seriesValuePaths); found {
		return model.MetricSample{
			Kind:           model.MetricKindRollingSeries,
			Key:            key,
			Point:          model.MetricPoint{Time: sampleTime(p), Value: value},
			IdempotencyKey: idempotencyKey,
		}, nil
	}

	return model.MetricSample{}, fmt.Errorf("%w: key=%s has no numeric or array field", ErrUnrecognizedMetric, key)
}

// dataArray - 최상위 또는 result 아래의 data 배열 조회
func dataArray(p Payload) ([]any, bool) {
	for _, path := range []string{"data", "result.data", "payload.data"} {
		if v, ok := valueAt(p, path); ok {
			if arr, ok := v.([]any); ok {
				return arr, true
			}
		}
	}
	return nil, false
}

// rankedEntries - data 배열을 RankedEntry 목록으로 변환
// count 파싱 실패는 0으로 강제하고 절대 실패하지 않음
func rankedEntries(raw []any, spec rankedKeySpec) []model.RankedEntry {
	entries := make([]model.RankedEntry, 0, len(raw))
	for _, item := range raw {
		node, ok := item.(map[string]any)
		if !ok {
			continue
		}
		entry := model.RankedEntry{}
		for _, path := range spec.labelPaths {
			if v, ok := node[path]; ok {
				if s := asString(v); s != "" {
					entry.Label = s
					break
				}
			}
		}
		for _, path := range spec.countPaths {
			if v, ok := node[path]; ok {
				entry.Count = int64(coerceNumber(v))
				break
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

// sampleTime - 페이로드에서 epoch millis 추출 (없으면 0, 저장 시점에 현재 시각으로 대체)
func sampleTime(p Payload) int64 {
	if f, ok := firstNumber(p, seriesTimePaths); ok {
		return epochMillis(f)
	}
	return 0
}
