// 웹훅 본문 파서
//
// 모니터링 툴의 프로듀서 버전마다 본문 형식이 다름:
//   - application/json: 일반 JSON 오브젝트
//   - application/x-www-form-urlencoded: key=value 쌍, 일부 값은 JSON 문자열
//   - Content-Type 누락/기타: JSON 먼저 시도, 실패하면 form으로 재시도
//
// form 본문의 "payload", "result", "data" 값이 JSON 문자열이면 파싱해서
// 오브젝트로 교체함. 파싱 실패는 치명적이지 않고 원본 문자열을 유지함.

package ingest

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/url"
	"strconv"
	"strings"
)

// Payload - 파싱된 웹훅 본문 (동적 형태)
type Payload map[string]any

// JSON 문자열로 올 수 있는 중첩 필드 키
var nestedJSONKeys = []string{"payload", "result", "data"}

// Parse - Content-Type에 따라 본문을 Payload로 파싱
func Parse(contentType string, body []byte) (Payload, error) {
	mediaType := contentType
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = mt
	}

	switch mediaType {
	case "application/json":
		return parseJSON(body)
	case "application/x-www-form-urlencoded":
		return parseForm(body)
	default:
		if p, err := parseJSON(body); err == nil {
			return p, nil
		}
		if p, err := parseForm(body); err == nil {
			return p, nil
		}
		return nil, fmt.Errorf("%w: body is neither JSON nor form-encoded", ErrMalformedPayload)
	}
}

func parseJSON(body []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: body is not a JSON object", ErrMalformedPayload)
	}
	expandNested(p)
	return p, nil
}

func parseForm(body []byte) (Payload, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: empty form body", ErrMalformedPayload)
	}

	p := make(Payload, len(values))
	for key := range values {
		p[key] = values.Get(key)
	}
	expandNested(p)
	return p, nil
}

// expandNested - 알려진 키의 JSON 문자열 값을 파싱해서 교체 (실패는 무시)
func expandNested(p Payload) {
	for _, key := range nestedJSONKeys {
		raw, ok := p[key].(string)
		if !ok {
			continue
		}
		trimmed := strings.TrimSpace(raw)
		if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
			continue
		}
		var parsed any
		if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
			p[key] = parsed
		}
	}
}

// valueAt - 점 구분 경로를 따라 값 조회 (예: "result.alert_type")
func valueAt(p Payload, path string) (any, bool) {
	var current any = map[string]any(p)
	for _, segment := range strings.Split(path, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// firstString - 후보 경로를 순서대로 시도해서 첫 비어있지 않은 문자열 반환
func firstString(p Payload, paths []string) (string, bool) {
	for _, path := range paths {
		v, ok := valueAt(p, path)
		if !ok {
			continue
		}
		if s := asString(v); s != "" {
			return s, true
		}
	}
	return "", false
}

// firstNumber - 후보 경로를 순서대로 시도해서 첫 숫자로 해석되는 값 반환
func firstNumber(p Payload, paths []string) (float64, bool) {
	for _, path := range paths {
		v, ok := valueAt(p, path)
		if !ok {
			continue
		}
		if f, ok := asNumber(v); ok {
			return f, true
		}
	}
	return 0, false
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}

// asNumber - 숫자 또는 숫자 문자열을 float64로 변환
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// coerceNumber - asNumber와 같지만 실패 시 0 (메트릭 값 강제 변환 규칙)
func coerceNumber(v any) float64 {
	f, _ := asNumber(v)
	return f
}

// epochMillis - 초/밀리초 epoch을 밀리초로 통일
// 프로듀서에 따라 "time"이 초 단위 문자열로 오기도 함
func epochMillis(f float64) int64 {
	if f == 0 {
		return 0
	}
	if f < 1e12 {
		return int64(f) * 1000
	}
	return int64(f)
}
