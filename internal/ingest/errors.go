package ingest

import "errors"

var (
	// ErrMalformedPayload - 지원하는 어떤 형식으로도 본문을 파싱하지 못함 (HTTP 400)
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrUnrecognizedMetric - 파싱은 됐지만 알려진 메트릭 형태와 일치하지 않음
	ErrUnrecognizedMetric = errors.New("unrecognized metric shape")
)
