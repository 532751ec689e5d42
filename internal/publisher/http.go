package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// doJSON sends a JSON request and decodes the 2xx response body into
// out. Non-2xx responses come back as a classified *PublishError.
func doJSON(ctx context.Context, client *http.Client, method, endpoint string, headers map[string]string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return send(client, req, out)
}

// doForm sends a form-encoded request, same contract as doJSON.
func doForm(ctx context.Context, client *http.Client, method, endpoint string, headers map[string]string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return send(client, req, out)
}

// doUpload posts raw bytes (media uploads).
func doUpload(ctx context.Context, client *http.Client, endpoint string, headers map[string]string, data []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return send(client, req, out)
}

func send(client *http.Client, req *http.Request, out interface{}) error {
	resp, err := client.Do(req)
	if err != nil {
		return Classify(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Classify(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fromResponse(resp.StatusCode, raw, resp.Header)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &PublishError{Kind: KindUnknown, Message: "malformed platform response: " + err.Error()}
		}
	}
	return nil
}

// truncateRunes cuts text to the platform's character budget, appending
// an ellipsis when anything was dropped.
func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	if limit <= 1 {
		return string(runes[:limit])
	}
	return string(runes[:limit-1]) + "…"
}
