// 메트릭 누적 비즈니스 로직 정의
// 분류된 MetricSample을 전략별로 dashboard_metrics에 반영함
//
// 전략:
//   - Snapshot: {time, value} 덮어쓰기
//   - RollingSeries: 기존 포인트 읽기 → append → 뒤에서 60개만 유지 → 전체 재기록
//   - RankedList: 5개로 패딩/절단해서 통째로 교체
//
// RollingSeries/RankedList의 read-modify-write는 metric_key별 뮤텍스로 직렬화함
// (동시 요청이 같은 이전 배열을 읽고 포인트를 잃는 lost update 방지)

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mqtt-guard/backend/internal/metrics"
	"github.com/mqtt-guard/backend/internal/model"
)

// metricRepo - DB 인터페이스
type metricRepo interface {
	UpsertMetric(ctx context.Context, ownerID, metricKey string, value json.RawMessage) error
	GetMetric(ctx context.Context, ownerID, metricKey string) (*model.StoredMetric, error)
}

// MetricService 구조체 정의
//
// ownerID는 단일 테넌트 변형의 고정 소유자 식별자로, 생성 시점에 주입받음
// (요청 인증에서 유도하지 않음)
type MetricService struct {
	db      metricRepo
	ownerID string
	dedupe  dedupeStore

	// keyLocks: metric_key -> *sync.Mutex
	keyLocks sync.Map
}

// MetricService 객체 생성 (dedupe는 nil 허용)
func NewMetricService(repo metricRepo, ownerID string, dedupe dedupeStore) *MetricService {
	return &MetricService{
		db:      repo,
		ownerID: ownerID,
		dedupe:  dedupe,
	}
}

// Apply - 분류된 샘플을 저장하고 저장된 포인트 수를 반환
func (s *MetricService) Apply(ctx context.Context, sample model.MetricSample) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if s.dedupe != nil {
		first, err := s.dedupe.FirstSeen(ctx, sample.IdempotencyKey)
		if err != nil {
			log.Printf("Dedupe check failed, continuing without dedupe: %v", err)
		} else if !first {
			log.Printf("Skipping duplicate metric delivery (metric_key=%s, idempotency_key=%s)", sample.Key, sample.IdempotencyKey)
			return 0, ErrDuplicateDelivery
		}
	}

	var stored int
	var err error
	switch sample.Kind {
	case model.MetricKindSnapshot:
		stored, err = s.applySnapshot(ctx, sample)
	case model.MetricKindRollingSeries:
		stored, err = s.applyRollingSeries(ctx, sample)
	case model.MetricKindRankedList:
		stored, err = s.applyRankedList(ctx, sample)
	default:
		err = fmt.Errorf("unknown metric kind: %s", sample.Kind)
	}
	if err != nil {
		// 저장 실패 시 키를 되돌려서 프로듀서 재전송이 다시 처리되게 함
		releaseDedupeKey(s.dedupe, sample.IdempotencyKey)
		return 0, err
	}
	return stored, nil
}

// applySnapshot - 키당 단일 값 덮어쓰기 (last-write-wins)
func (s *MetricService) applySnapshot(ctx context.Context, sample model.MetricSample) (int, error) {
	point := sample.Point
	if point.Time == 0 {
		point.Time = time.Now().UnixMilli()
	}

	value, err := json.Marshal(point)
	if err != nil {
		return 0, err
	}
	if err := s.db.UpsertMetric(ctx, s.ownerID, sample.Key, value); err != nil {
		return 0, err
	}
	metrics.MetricsStored.WithLabelValues(string(model.MetricKindSnapshot)).Inc()
	return 1, nil
}

// applyRollingSeries - read-append-trim-write (키별 뮤텍스로 직렬화)
func (s *MetricService) applyRollingSeries(ctx context.Context, sample model.MetricSample) (int, error) {
	mu := s.lockFor(sample.Key)
	mu.Lock()
	defer mu.Unlock()

	points, err := s.readPoints(ctx, sample.Key)
	if err != nil {
		return 0, err
	}

	point := sample.Point
	if point.Time == 0 {
		point.Time = time.Now().UnixMilli()
	}
	points = append(points, point)

	// 상한 초과분은 앞(가장 오래된 것)에서 제거
	if len(points) > model.RollingWindowSize {
		points = points[len(points)-model.RollingWindowSize:]
	}

	value, err := json.Marshal(points)
	if err != nil {
		return 0, err
	}
	if err := s.db.UpsertMetric(ctx, s.ownerID, sample.Key, value); err != nil {
		return 0, err
	}
	metrics.MetricsStored.WithLabelValues(string(model.MetricKindRollingSeries)).Inc()
	return len(points), nil
}

// applyRankedList - 5개 고정 길이로 맞춰서 통째로 교체
func (s *MetricService) applyRankedList(ctx context.Context, sample model.MetricSample) (int, error) {
	writeTime := sample.Time
	if writeTime == 0 {
		writeTime = time.Now().UnixMilli()
	}

	stored := model.RankedListValue{
		Time:    writeTime,
		Entries: padRankedEntries(sample.Entries, sample.PlaceholderLabel),
	}

	value, err := json.Marshal(stored)
	if err != nil {
		return 0, err
	}
	if err := s.db.UpsertMetric(ctx, s.ownerID, sample.Key, value); err != nil {
		return 0, err
	}
	metrics.MetricsStored.WithLabelValues(string(model.MetricKindRankedList)).Inc()
	return len(stored.Entries), nil
}

// readPoints - 저장된 시계열 읽기
// 키가 아직 없으면 빈 배열 (에러 아님), 형태가 다른 기존 값은 버리고 새로 시작
func (s *MetricService) readPoints(ctx context.Context, metricKey string) ([]model.MetricPoint, error) {
	stored, err := s.db.GetMetric(ctx, s.ownerID, metricKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []model.MetricPoint{}, nil
		}
		return nil, err
	}

	var points []model.MetricPoint
	if err := json.Unmarshal(stored.Value, &points); err != nil {
		log.Printf("Discarding non-series value under metric_key=%s: %v", metricKey, err)
		return []model.MetricPoint{}, nil
	}
	return points, nil
}

// padRankedEntries - 5개 미만은 count 0 자리표시자로 채우고 초과분은 자름
// 패딩은 저장 경계에서만 일어남 (프로듀서는 몇 개를 보내든 상관없음)
func padRankedEntries(entries []model.RankedEntry, placeholder string) []model.RankedEntry {
	if placeholder == "" {
		placeholder = "Entry"
	}

	out := make([]model.RankedEntry, 0, model.RankedListSize)
	for i := 0; i < len(entries) && i < model.RankedListSize; i++ {
		out = append(out, entries[i])
	}
	for i := len(out); i < model.RankedListSize; i++ {
		out = append(out, model.RankedEntry{
			Label: fmt.Sprintf("%s %d", placeholder, i+1),
			Count: 0,
		})
	}
	return out
}

func (s *MetricService) lockFor(metricKey string) *sync.Mutex {
	mu, _ := s.keyLocks.LoadOrStore(metricKey, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
