package model

// AnalysisResponse - AI 분석 결과 응답
type AnalysisResponse struct {
	Status  string `json:"status"`
	AlertID string `json:"alert_id"`
	Summary string `json:"summary"`
}

// SimilarAlert - 과거 유사 알림 (임베딩 코사인 거리 기준)
type SimilarAlert struct {
	AlertID   string  `json:"alert_id"`
	AlertType string  `json:"alert_type"`
	Severity  string  `json:"severity"`
	Content   string  `json:"content"`
	Distance  float64 `json:"distance"`
}

// SimilarAlertsResponse - 유사 알림 목록 응답
type SimilarAlertsResponse struct {
	Status string         `json:"status"`
	Data   []SimilarAlert `json:"data"`
}
