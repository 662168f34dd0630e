package httppool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const jsonContentType = "application/json; charset=utf-8"

// Response — ответ с уже разобранным телом.
type Response struct {
	StatusCode int
	Header     http.Header
	Trailer    http.Header
	Body       any    // string или результат разбора JSON
	Raw        []byte // тело как есть
}

// Text — тело ответа как строка.
func (r *Response) Text() string { return string(r.Raw) }

// DecodeJSON — разбирает тело в v.
func (r *Response) DecodeJSON(v any) error {
	if err := json.Unmarshal(r.Raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrDecodeBody, err)
	}
	return nil
}

// encodeBody — тело запроса. Для GET тело не отправляется.
// Структура (или отсутствие content-type) → JSON с content-type application/json;
// строка при явно заданном content-type уходит без изменений.
func encodeBody(method string, body any, h http.Header) (io.Reader, error) {
	if body == nil || method == http.MethodGet {
		return nil, nil
	}

	var (
		raw    string
		isText bool
	)
	switch b := body.(type) {
	case string:
		raw, isText = b, true
	case []byte:
		raw, isText = string(b), true
	}

	if isText && h.Get("Content-Type") != "" {
		return strings.NewReader(raw), nil
	}

	var payload any = body
	if isText {
		payload = raw
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	h.Set("Content-Type", jsonContentType)
	return bytes.NewReader(data), nil
}

func isJSON(h http.Header) bool {
	return strings.HasPrefix(strings.ToLower(h.Get("Content-Type")), "application/json")
}

// decodeBody — разбор тела по content-type. Пустое тело (в т.ч. content-length: 0)
// не разбирается; JSON без content-length разбирается по content-type.
func decodeBody(h http.Header, contentLength int64, raw []byte) (any, error) {
	contentExists := contentLength > 0

	if contentExists && isJSON(h) {
		return parseJSON(raw)
	}

	text := string(raw)
	if len(text) > 0 && isJSON(h) {
		return parseJSON(raw)
	}
	return text, nil
}

func parseJSON(raw []byte) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeBody, err)
	}
	return v, nil
}
