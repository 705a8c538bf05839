// AI 게이트웨이(genai) 클라이언트 정의
//
// rate limit(HTTP 429) 응답은 지수 백오프로 재시도함:
// 기본 1초, 시도마다 2배, 최대 3회

package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mqtt-guard/backend/internal/config"
	"google.golang.org/genai"
)

const (
	maxGenerateAttempts = 3
	rateLimitBaseDelay  = time.Second
)

type GenAIClient struct {
	client         *genai.Client
	model          string
	embeddingModel string
}

func NewGenAIClient(cfg config.AIConfig) (*GenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing AI_API_KEY")
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, err
	}
	return &GenAIClient{
		client:         client,
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
	}, nil
}

// GenerateText - 프롬프트로부터 분석 텍스트 생성 (429는 백오프 후 재시도)
func (c *GenAIClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	delay := rateLimitBaseDelay

	var lastErr error
	for attempt := 1; attempt <= maxGenerateAttempts; attempt++ {
		res, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
		if err == nil {
			if res == nil {
				return "", fmt.Errorf("empty generation result")
			}
			return res.Text(), nil
		}

		lastErr = err
		if !isRateLimited(err) {
			return "", err
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return "", fmt.Errorf("rate limited after %d attempts: %w", maxGenerateAttempts, lastErr)
}

// EmbedText - 텍스트 임베딩 생성
func (c *GenAIClient) EmbedText(ctx context.Context, text string) ([]float32, string, error) {
	res, err := c.client.Models.EmbedContent(ctx, c.embeddingModel, genai.Text(text), nil)
	if err != nil {
		return nil, c.embeddingModel, err
	}
	if res == nil || len(res.Embeddings) == 0 || res.Embeddings[0] == nil {
		return nil, c.embeddingModel, fmt.Errorf("empty embedding result")
	}
	return res.Embeddings[0].Values, c.embeddingModel, nil
}

func isRateLimited(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests
	}
	return false
}
