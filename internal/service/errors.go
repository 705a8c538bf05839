package service

import (
	"errors"
	"fmt"
)

// ErrDuplicateDelivery - idempotency key가 이미 처리된 웹훅 (무시하고 200)
var ErrDuplicateDelivery = errors.New("duplicate webhook delivery")

// DeviceNotFoundError - 알림을 귀속시킬 디바이스를 찾지 못함
//
// 잘못 설정된 프로듀서에게 흔히 일어나는 정상 운영 상황임 (HTTP 404).
// 프로듀서가 페이로드를 고칠 수 있도록 시도한 식별자를 담음
type DeviceNotFoundError struct {
	ClientID  string
	IPAddress string
}

func (e *DeviceNotFoundError) Error() string {
	return fmt.Sprintf("device not found (client_id=%q, ip_address=%q)", e.ClientID, e.IPAddress)
}
