package model

type ErrorResponse struct {
	Error string `json:"error"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type PingResponse struct {
	Message string `json:"message"`
}

type RootResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type AuthMeResponse struct {
	UserID  int64  `json:"userId"`
	LoginID string `json:"loginId"`
}

// AlertWebhookResponse - 알림 웹훅 성공 응답
type AlertWebhookResponse struct {
	Success  bool   `json:"success"`
	AlertID  string `json:"alertId"`
	DeviceID string `json:"deviceId"`
}

// AlertWebhookNotFoundResponse - 디바이스 미발견 응답 (HTTP 404)
// 프로듀서가 페이로드를 고쳐 재전송할 수 있도록 시도한 식별자를 함께 반환
type AlertWebhookNotFoundResponse struct {
	Error            string `json:"error"`
	ClientIdentifier string `json:"clientIdentifier,omitempty"`
	IPAddress        string `json:"ipAddress,omitempty"`
}

// MetricWebhookResponse - 메트릭 웹훅 성공 응답
type MetricWebhookResponse struct {
	Success      bool   `json:"success"`
	MetricKey    string `json:"metricKey"`
	PointsStored int    `json:"pointsStored,omitempty"`
}
