// 브로커에 연결되는 디바이스(클라이언트) 엔티티 정의
// 웹훅으로 들어온 알림은 반드시 하나의 디바이스에 귀속됨

package model

import "time"

// 디바이스 상태 값
const (
	DeviceStatusSafe    = "safe"
	DeviceStatusThreat  = "threat"
	DeviceStatusBlocked = "blocked"
)

// Device - 모니터링 대상 디바이스
// ClientID 또는 IPAddress로 식별되며, 이 파이프라인은 디바이스를 조회만 하고 생성하지 않음
type Device struct {
	ID         string     `json:"id"`
	ClientID   string     `json:"client_id"`
	IPAddress  string     `json:"ip_address"`
	Name       string     `json:"name"`
	Status     string     `json:"status"`
	OwnerEmail string     `json:"owner_email"`
	LastSeen   *time.Time `json:"last_seen,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// DeviceStatusRequest - 운영자의 디바이스 상태 변경 요청
type DeviceStatusRequest struct {
	Status string `json:"status"`
}

// DeviceListResponse - 디바이스 목록 응답
type DeviceListResponse struct {
	Status string   `json:"status"`
	Data   []Device `json:"data"`
}
