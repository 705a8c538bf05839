// Alert 처리 비즈니스 로직 정의
// 정규화된 알림을 디바이스에 귀속시키고 저장한 뒤 부수 효과를 수행함
//
// 처리 흐름:
//  1. idempotency key가 있으면 중복 체크 (선택 기능, 3 실패 시 키 해제)
//  2. 디바이스 조회: client_id 우선, 없거나 미스면 ip_address (first match wins)
//  3. 알림 저장 (unresolved) - 실패는 요청 전체 실패 (HTTP 500)
//  4. 디바이스 상태 threat 전환 - 실패는 로그만 (알림 레코드가 더 중요)
//  5. 소유자 메일 알림 - 동기 호출하되 실패는 로그만
//  6. AI 분석 비동기 요청
//
// 3만 치명적이고 4~6은 best-effort인 비대칭은 의도된 설계임

package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mqtt-guard/backend/internal/metrics"
	"github.com/mqtt-guard/backend/internal/model"
)

// storeTimeout - 웹훅 파이프라인의 외부 호출 상한
const storeTimeout = 10 * time.Second

// alertRepo - DB 인터페이스
type alertRepo interface {
	GetDeviceByClientID(ctx context.Context, clientID string) (*model.Device, error)
	GetDeviceByIP(ctx context.Context, ipAddress string) (*model.Device, error)
	InsertAlert(ctx context.Context, alert model.Alert) error
	UpdateDeviceStatus(ctx context.Context, deviceID, status string) error
	TouchDeviceLastSeen(ctx context.Context, deviceID string, seenAt time.Time) error
}

// mailSender - 알림 메일 인터페이스
type mailSender interface {
	IsConfigured() bool
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// analysisRequester - 비동기 AI 분석 요청 인터페이스
type analysisRequester interface {
	RequestAnalysis(alert model.Alert)
}

// dedupeStore - idempotency key 저장소 인터페이스
// FirstSeen이 키를 선점하므로 주 저장이 실패하면 반드시 Forget으로 해제해야 함.
// 해제하지 않으면 프로듀서의 정당한 재전송이 TTL 동안 중복으로 버려짐
type dedupeStore interface {
	FirstSeen(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}

// releaseDedupeKey - 선점한 idempotency key를 해제 (best-effort)
// 요청 컨텍스트가 타임아웃으로 죽은 경로에서도 해제는 되도록 별도 컨텍스트 사용
func releaseDedupeKey(store dedupeStore, key string) {
	if store == nil || key == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := store.Forget(ctx, key); err != nil {
		log.Printf("Failed to release dedupe key (idempotency_key=%s): %v", key, err)
	}
}

// AlertService 구조체 정의
type AlertService struct {
	db       alertRepo
	mailer   mailSender
	analysis analysisRequester
	dedupe   dedupeStore
}

// AlertService 객체 생성 (analysis, dedupe는 nil 허용)
func NewAlertService(repo alertRepo, mailer mailSender, analysis analysisRequester, dedupe dedupeStore) *AlertService {
	return &AlertService{
		db:       repo,
		mailer:   mailer,
		analysis: analysis,
		dedupe:   dedupe,
	}
}

// ProcessAlert - 정규화된 알림 한 건을 처리하고 저장된 레코드를 반환
func (s *AlertService) ProcessAlert(ctx context.Context, normalized model.NormalizedAlert) (*model.Alert, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	// 1. 선택적 중복 체크
	if s.dedupe != nil {
		first, err := s.dedupe.FirstSeen(ctx, normalized.IdempotencyKey)
		if err != nil {
			// dedupe 저장소 장애가 알림 수집을 막으면 안 됨
			log.Printf("Dedupe check failed, continuing without dedupe: %v", err)
		} else if !first {
			log.Printf("Skipping duplicate alert delivery (idempotency_key=%s)", normalized.IdempotencyKey)
			return nil, ErrDuplicateDelivery
		}
	}

	// 2. 디바이스 조회 - 실패하면 아직 아무것도 저장되지 않았으므로 키를 되돌려 줌
	device, err := s.resolveDevice(ctx, normalized)
	if err != nil {
		releaseDedupeKey(s.dedupe, normalized.IdempotencyKey)
		return nil, err
	}

	// 3. 알림 저장 - 유일하게 치명적인 쓰기
	alert := model.Alert{
		ID:          uuid.NewString(),
		DeviceID:    device.ID,
		AlertType:   normalized.AlertType,
		Description: normalized.Description,
		Severity:    normalized.Severity,
		Status:      model.AlertStatusUnresolved,
		CreatedAt:   time.Now(),
	}
	if err := s.db.InsertAlert(ctx, alert); err != nil {
		releaseDedupeKey(s.dedupe, normalized.IdempotencyKey)
		return nil, err
	}
	metrics.AlertsRecorded.Inc()

	// 4. 디바이스 상태 전환 - 실패해도 알림은 이미 존재하므로 계속 진행
	if err := s.db.UpdateDeviceStatus(ctx, device.ID, model.DeviceStatusThreat); err != nil {
		log.Printf("Failed to update device status (device_id=%s): %v", device.ID, err)
	}
	if err := s.db.TouchDeviceLastSeen(ctx, device.ID, time.Now()); err != nil {
		log.Printf("Failed to update device last_seen (device_id=%s): %v", device.ID, err)
	}

	// 5. 소유자 메일 알림 - best-effort
	s.notifyOwner(ctx, device, alert)

	// 6. AI 분석 비동기 요청
	if s.analysis != nil {
		go s.analysis.RequestAnalysis(alert)
	}

	return &alert, nil
}

// resolveDevice - client_id 우선, ip_address 차선으로 디바이스 조회
// 부분 매치 병합 없음: 첫 매치가 이김
func (s *AlertService) resolveDevice(ctx context.Context, normalized model.NormalizedAlert) (*model.Device, error) {
	if normalized.ClientID != "" {
		device, err := s.db.GetDeviceByClientID(ctx, normalized.ClientID)
		if err == nil {
			return device, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}

	if normalized.IPAddress != "" {
		device, err := s.db.GetDeviceByIP(ctx, normalized.IPAddress)
		if err == nil {
			return device, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}

	metrics.DevicesNotFound.Inc()
	return nil, &DeviceNotFoundError{
		ClientID:  normalized.ClientID,
		IPAddress: normalized.IPAddress,
	}
}

// notifyOwner - 디바이스 소유자에게 알림 메일 전송 (실패는 절대 전파하지 않음)
func (s *AlertService) notifyOwner(ctx context.Context, device *model.Device, alert model.Alert) {
	if s.mailer == nil || !s.mailer.IsConfigured() || device.OwnerEmail == "" {
		return
	}

	mailCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	subject := "[" + alert.Severity + "] " + alert.AlertType
	body := alertMailBody(device, alert)
	if err := s.mailer.Send(mailCtx, device.OwnerEmail, subject, body); err != nil {
		metrics.NotificationFailures.Inc()
		log.Printf("Failed to send alert mail (alert_id=%s, to=%s): %v", alert.ID, device.OwnerEmail, err)
		return
	}
	log.Printf("Sent alert mail (alert_id=%s, to=%s)", alert.ID, device.OwnerEmail)
}

func alertMailBody(device *model.Device, alert model.Alert) string {
	return "<h3>" + alert.AlertType + "</h3>" +
		"<p>" + alert.Description + "</p>" +
		"<p>Device: " + device.Name + " (" + device.ClientID + ")<br>" +
		"Severity: " + alert.Severity + "</p>"
}
