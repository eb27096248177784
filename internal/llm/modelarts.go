package llm

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// modelArtsError is the error body returned by Huawei ModelArts MaaS.
type modelArtsError struct {
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

type openAIErrorBody struct {
	Error openAIError `json:"error"`
}

type openAIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// envelopeTransport rewrites ModelArts-style error bodies into the OpenAI
// error envelope so the OpenAI client decodes them into *openai.APIError.
// Successful responses and bodies already in OpenAI shape pass through.
type envelopeTransport struct {
	base http.RoundTripper
}

// NewEnvelopeTransport wraps base (http.DefaultTransport when nil).
func NewEnvelopeTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &envelopeTransport{base: base}
}

func (t *envelopeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil || resp.StatusCode < http.StatusBadRequest {
		return resp, err
	}

	raw, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}

	if rewritten, ok := normalizeErrorBody(raw); ok {
		raw = rewritten
		resp.Header.Set("Content-Type", "application/json")
	}
	resp.Body = io.NopCloser(bytes.NewReader(raw))
	resp.ContentLength = int64(len(raw))
	resp.Header.Set("Content-Length", strconv.Itoa(len(raw)))
	return resp, nil
}

// normalizeErrorBody returns an OpenAI-shaped body when raw is a ModelArts
// error or plain text. It reports false when raw is already in OpenAI shape
// or is some other JSON document.
func normalizeErrorBody(raw []byte) ([]byte, bool) {
	var peek map[string]json.RawMessage
	if err := json.Unmarshal(raw, &peek); err != nil {
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = "AI Service Error"
		}
		return envelope(openAIError{Message: msg, Type: "http_error"})
	}
	if _, ok := peek["error"]; ok {
		return nil, false
	}
	if _, ok := peek["error_code"]; !ok {
		return nil, false
	}

	var me modelArtsError
	if err := json.Unmarshal(raw, &me); err != nil {
		return nil, false
	}
	if me.ErrorMsg == "" {
		me.ErrorMsg = "AI Service Error"
	}
	return envelope(openAIError{Code: me.ErrorCode, Message: me.ErrorMsg, Type: "provider_error"})
}

func envelope(e openAIError) ([]byte, bool) {
	out, err := json.Marshal(openAIErrorBody{Error: e})
	if err != nil {
		return nil, false
	}
	return out, true
}
