package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/mqtt-guard/backend/internal/model"
)

// fakeMetricRepo - 키별 JSONB 값을 메모리에 보관
type fakeMetricRepo struct {
	values            map[string]json.RawMessage
	upsertErr         error
	upsertHadDeadline bool
}

func newFakeMetricRepo() *fakeMetricRepo {
	return &fakeMetricRepo{values: map[string]json.RawMessage{}}
}

func (f *fakeMetricRepo) UpsertMetric(ctx context.Context, ownerID, metricKey string, value json.RawMessage) error {
	_, f.upsertHadDeadline = ctx.Deadline()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.values[ownerID+"/"+metricKey] = value
	return nil
}

func (f *fakeMetricRepo) GetMetric(ctx context.Context, ownerID, metricKey string) (*model.StoredMetric, error) {
	value, ok := f.values[ownerID+"/"+metricKey]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &model.StoredMetric{OwnerID: ownerID, MetricKey: metricKey, Value: value}, nil
}

func TestApplyRollingSeriesBoundedWindow(t *testing.T) {
	repo := newFakeMetricRepo()
	svc := NewMetricService(repo, "default", nil)

	const writes = 75
	for i := 1; i <= writes; i++ {
		sample := model.MetricSample{
			Kind:  model.MetricKindRollingSeries,
			Key:   "throughput",
			Point: model.MetricPoint{Time: int64(i), Value: float64(i)},
		}
		stored, err := svc.Apply(context.Background(), sample)
		if err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}

		wantLen := i
		if wantLen > model.RollingWindowSize {
			wantLen = model.RollingWindowSize
		}
		if stored != wantLen {
			t.Fatalf("write %d: pointsStored = %d, want %d", i, stored, wantLen)
		}
	}

	var points []model.MetricPoint
	if err := json.Unmarshal(repo.values["default/throughput"], &points); err != nil {
		t.Fatalf("stored value is not a series: %v", err)
	}
	if len(points) != model.RollingWindowSize {
		t.Fatalf("len(points) = %d, want %d", len(points), model.RollingWindowSize)
	}
	// 마지막 60개가 도착 순서대로 남아야 함 (가장 오래된 것부터 제거)
	for i, p := range points {
		want := int64(writes - model.RollingWindowSize + 1 + i)
		if p.Time != want {
			t.Fatalf("points[%d].Time = %d, want %d", i, p.Time, want)
		}
	}
}

func TestApplyRollingSeriesMissingKeyIsNotAnError(t *testing.T) {
	repo := newFakeMetricRepo()
	svc := NewMetricService(repo, "default", nil)

	stored, err := svc.Apply(context.Background(), model.MetricSample{
		Kind:  model.MetricKindRollingSeries,
		Key:   "brand-new-key",
		Point: model.MetricPoint{Time: 1700000000000, Value: 25},
	})
	if err != nil {
		t.Fatalf("first write to new key must succeed: %v", err)
	}
	if stored != 1 {
		t.Errorf("pointsStored = %d, want 1", stored)
	}
}

func TestApplySnapshotOverwrites(t *testing.T) {
	repo := newFakeMetricRepo()
	svc := NewMetricService(repo, "default", nil)

	for _, v := range []float64{100, 1850} {
		_, err := svc.Apply(context.Background(), model.MetricSample{
			Kind:  model.MetricKindSnapshot,
			Key:   "successful_connections_24h",
			Point: model.MetricPoint{Time: 1700000000000, Value: v},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	var point model.MetricPoint
	if err := json.Unmarshal(repo.values["default/successful_connections_24h"], &point); err != nil {
		t.Fatalf("stored value is not a point: %v", err)
	}
	if point.Value != 1850 {
		t.Errorf("Value = %v, want 1850 (last write wins)", point.Value)
	}
}

func TestApplyRankedListPadding(t *testing.T) {
	tests := []struct {
		name    string
		entries []model.RankedEntry
	}{
		{"one-entry", []model.RankedEntry{{Label: "dev-1", Count: 150}}},
		{"three-entries", []model.RankedEntry{
			{Label: "dev-1", Count: 150},
			{Label: "dev-2", Count: 90},
			{Label: "dev-3", Count: 12},
		}},
		{"empty", nil},
		{"over-five", []model.RankedEntry{
			{Label: "a", Count: 9}, {Label: "b", Count: 8}, {Label: "c", Count: 7},
			{Label: "d", Count: 6}, {Label: "e", Count: 5}, {Label: "f", Count: 4},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeMetricRepo()
			svc := NewMetricService(repo, "default", nil)

			_, err := svc.Apply(context.Background(), model.MetricSample{
				Kind:             model.MetricKindRankedList,
				Key:              "top_targeted_clients",
				Time:             1700000000000,
				Entries:          tt.entries,
				PlaceholderLabel: "Client",
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var stored model.RankedListValue
			if err := json.Unmarshal(repo.values["default/top_targeted_clients"], &stored); err != nil {
				t.Fatalf("stored value is not a ranked list: %v", err)
			}
			if len(stored.Entries) != model.RankedListSize {
				t.Fatalf("len(entries) = %d, want %d", len(stored.Entries), model.RankedListSize)
			}

			// 프로듀서가 보낸 항목은 순서 그대로, 나머지는 count 0 자리표시자
			n := len(tt.entries)
			if n > model.RankedListSize {
				n = model.RankedListSize
			}
			for i := 0; i < n; i++ {
				if stored.Entries[i] != tt.entries[i] {
					t.Errorf("entries[%d] = %+v, want %+v", i, stored.Entries[i], tt.entries[i])
				}
			}
			for i := n; i < model.RankedListSize; i++ {
				want := model.RankedEntry{Label: fmt.Sprintf("Client %d", i+1), Count: 0}
				if stored.Entries[i] != want {
					t.Errorf("entries[%d] = %+v, want %+v", i, stored.Entries[i], want)
				}
			}
		})
	}
}

func TestApplyRankedListReplacesWholesale(t *testing.T) {
	repo := newFakeMetricRepo()
	svc := NewMetricService(repo, "default", nil)

	writeEntries := func(entries []model.RankedEntry) {
		t.Helper()
		_, err := svc.Apply(context.Background(), model.MetricSample{
			Kind:             model.MetricKindRankedList,
			Key:              "top_busiest_topics",
			Entries:          entries,
			PlaceholderLabel: "Topic",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	writeEntries([]model.RankedEntry{{Label: "old/topic", Count: 999}})
	writeEntries([]model.RankedEntry{{Label: "new/topic", Count: 1}})

	var stored model.RankedListValue
	if err := json.Unmarshal(repo.values["default/top_busiest_topics"], &stored); err != nil {
		t.Fatal(err)
	}
	if stored.Entries[0].Label != "new/topic" {
		t.Errorf("ranked list must be replaced, got %+v", stored.Entries[0])
	}
	for _, e := range stored.Entries {
		if e.Label == "old/topic" {
			t.Error("stale entry survived a wholesale replace")
		}
	}
}

func TestApplyPropagatesUpsertFailure(t *testing.T) {
	repo := newFakeMetricRepo()
	repo.upsertErr = fmt.Errorf("connection refused")
	svc := NewMetricService(repo, "default", nil)

	_, err := svc.Apply(context.Background(), model.MetricSample{
		Kind:  model.MetricKindSnapshot,
		Key:   "failed_auth_attempts_24h",
		Point: model.MetricPoint{Time: 1, Value: 2},
	})
	if err == nil {
		t.Fatal("primary write failure must be fatal to the request")
	}
}

func TestApplyDuplicateDelivery(t *testing.T) {
	repo := newFakeMetricRepo()
	svc := NewMetricService(repo, "default", newFakeDedupe())

	sample := model.MetricSample{
		Kind:           model.MetricKindSnapshot,
		Key:            "failed_auth_24h",
		Point:          model.MetricPoint{Time: 1700000000000, Value: 42},
		IdempotencyKey: "delivery-1",
	}
	if _, err := svc.Apply(context.Background(), sample); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if _, err := svc.Apply(context.Background(), sample); !errors.Is(err, ErrDuplicateDelivery) {
		t.Fatalf("second delivery error = %v, want ErrDuplicateDelivery", err)
	}
}

func TestApplyRetryAfterUpsertFailure(t *testing.T) {
	repo := newFakeMetricRepo()
	dedupe := newFakeDedupe()
	svc := NewMetricService(repo, "default", dedupe)

	sample := model.MetricSample{
		Kind:           model.MetricKindRollingSeries,
		Key:            "throughput",
		Point:          model.MetricPoint{Time: 1700000000000, Value: 25},
		IdempotencyKey: "delivery-2",
	}

	// 저장 실패는 키를 소모하면 안 됨: 재전송이 같은 키로 다시 들어옴
	repo.upsertErr = errors.New("db down")
	if _, err := svc.Apply(context.Background(), sample); err == nil {
		t.Fatal("expected upsert failure")
	}

	repo.upsertErr = nil
	stored, err := svc.Apply(context.Background(), sample)
	if err != nil {
		t.Fatalf("retry after failed write error = %v, want success", err)
	}
	if stored != 1 {
		t.Errorf("pointsStored = %d, want 1", stored)
	}
}

func TestApplyBoundsStoreCalls(t *testing.T) {
	repo := newFakeMetricRepo()
	svc := NewMetricService(repo, "default", nil)

	if _, err := svc.Apply(context.Background(), model.MetricSample{
		Kind:  model.MetricKindSnapshot,
		Key:   "failed_auth_24h",
		Point: model.MetricPoint{Time: 1700000000000, Value: 42},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !repo.upsertHadDeadline {
		t.Error("UpsertMetric received a context without a deadline")
	}
}
