// AI 분석 비즈니스 로직 정의
// 알림 내용을 임베딩해 과거 유사 알림을 찾고, 그 맥락과 함께
// AI 게이트웨이에 요약을 요청해서 알림 레코드에 저장함

package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mqtt-guard/backend/internal/model"
)

const similarAlertLimit = 5

// analysisRepo - DB 인터페이스
type analysisRepo interface {
	GetAlertDetail(ctx context.Context, alertID string) (*model.Alert, error)
	UpdateAlertAnalysis(ctx context.Context, alertID, summary string) error
	InsertAlertEmbedding(ctx context.Context, alertID, content, embeddingModel string, vector []float32) (int64, error)
	FindSimilarAlerts(ctx context.Context, alertID string, vector []float32, limit int) ([]model.SimilarAlert, error)
}

// aiClient - AI 게이트웨이 인터페이스
type aiClient interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	EmbedText(ctx context.Context, text string) ([]float32, string, error)
}

type AnalysisService struct {
	repo analysisRepo
	ai   aiClient
}

func NewAnalysisService(repo analysisRepo, ai aiClient) *AnalysisService {
	return &AnalysisService{repo: repo, ai: ai}
}

// AnalyzeAlert - 알림 한 건을 분석하고 요약을 저장 후 반환
func (s *AnalysisService) AnalyzeAlert(ctx context.Context, alertID string) (string, error) {
	alert, err := s.repo.GetAlertDetail(ctx, alertID)
	if err != nil {
		return "", fmt.Errorf("failed to load alert %s: %w", alertID, err)
	}

	content := alert.AlertType + ": " + alert.Description

	// 임베딩과 유사 알림 조회는 분석 품질을 높이는 부가 단계임
	// 실패해도 요약 생성은 계속 진행
	var similar []model.SimilarAlert
	vector, embeddingModel, err := s.ai.EmbedText(ctx, content)
	if err != nil {
		log.Printf("Failed to embed alert content (alert_id=%s): %v", alertID, err)
	} else {
		if _, err := s.repo.InsertAlertEmbedding(ctx, alertID, content, embeddingModel, vector); err != nil {
			log.Printf("Failed to store alert embedding (alert_id=%s): %v", alertID, err)
		}
		if similar, err = s.repo.FindSimilarAlerts(ctx, alertID, vector, similarAlertLimit); err != nil {
			log.Printf("Failed to find similar alerts (alert_id=%s): %v", alertID, err)
			similar = nil
		}
	}

	summary, err := s.ai.GenerateText(ctx, buildAnalysisPrompt(alert, similar))
	if err != nil {
		return "", fmt.Errorf("failed to generate analysis: %w", err)
	}

	if err := s.repo.UpdateAlertAnalysis(ctx, alertID, summary); err != nil {
		return "", fmt.Errorf("failed to save analysis: %w", err)
	}
	return summary, nil
}

// RequestAnalysis - 웹훅 처리 흐름에서 호출하는 비동기 진입점 (실패는 로그만)
// nil 리시버는 AI 분석 비활성 상태를 의미함
func (s *AnalysisService) RequestAnalysis(alert model.Alert) {
	if s == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := s.AnalyzeAlert(ctx, alert.ID); err != nil {
		log.Printf("Background analysis failed (alert_id=%s): %v", alert.ID, err)
		return
	}
	log.Printf("Background analysis completed (alert_id=%s)", alert.ID)
}

// SimilarAlerts - 알림과 유사한 과거 알림 조회
func (s *AnalysisService) SimilarAlerts(ctx context.Context, alertID string) ([]model.SimilarAlert, error) {
	alert, err := s.repo.GetAlertDetail(ctx, alertID)
	if err != nil {
		return nil, fmt.Errorf("failed to load alert %s: %w", alertID, err)
	}

	vector, _, err := s.ai.EmbedText(ctx, alert.AlertType+": "+alert.Description)
	if err != nil {
		return nil, fmt.Errorf("failed to embed alert content: %w", err)
	}
	return s.repo.FindSimilarAlerts(ctx, alertID, vector, similarAlertLimit)
}

func buildAnalysisPrompt(alert *model.Alert, similar []model.SimilarAlert) string {
	var b strings.Builder
	b.WriteString("You are a security analyst for an MQTT broker fleet.\n")
	b.WriteString("Summarize the following alert in 2-3 sentences and suggest one next step.\n\n")
	fmt.Fprintf(&b, "Alert type: %s\nSeverity: %s\nDescription: %s\n", alert.AlertType, alert.Severity, alert.Description)

	if len(similar) > 0 {
		b.WriteString("\nSimilar past alerts:\n")
		for _, s := range similar {
			fmt.Fprintf(&b, "- [%s] %s\n", s.Severity, s.Content)
		}
	}
	return b.String()
}
