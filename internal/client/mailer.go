// 외부 이메일 API(Resend)와 통신하는 클라이언트 정의
//
// 환경변수:
//   - RESEND_API_KEY: API 키 (re_...)
//   - MAIL_FROM: 발신 주소
//
// 알림 메일은 best-effort 사이드 채널임: 전송 실패는 호출자가 로그만 남기고
// 절대 요청 실패로 전파하지 않음

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mqtt-guard/backend/internal/config"
)

const resendEndpoint = "https://api.resend.com/emails"

// MailClient 구조체 정의
type MailClient struct {
	apiKey     string
	from       string
	httpClient *http.Client
}

type mailMessage struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type mailResponse struct {
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

// MailClient 객체 생성
func NewMailClient(cfg config.MailerConfig) *MailClient {
	return &MailClient{
		apiKey: cfg.APIKey,
		from:   cfg.FromAddress,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// API 키 설정 여부 체크
func (c *MailClient) IsConfigured() bool {
	return c.apiKey != ""
}

// Send - 단일 수신자에게 HTML 메일 전송
func (c *MailClient) Send(ctx context.Context, to, subject, htmlBody string) error {
	if !c.IsConfigured() {
		return fmt.Errorf("mail API key not configured")
	}
	if to == "" {
		return fmt.Errorf("recipient address is empty")
	}

	payload, err := json.Marshal(mailMessage{
		From:    c.from,
		To:      []string{to},
		Subject: subject,
		HTML:    htmlBody,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal mail: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", resendEndpoint, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var mailResp mailResponse
		_ = json.Unmarshal(body, &mailResp)
		return fmt.Errorf("mail API error (status %d): %s", resp.StatusCode, mailResp.Message)
	}
	return nil
}
