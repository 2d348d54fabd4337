package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPreviewReturnsLeadingMessages(t *testing.T) {
	h := NewPreviewHandler(nil, testConfig())

	body, ct := multipartUpload(t, "export.json", sampleExport, map[string]string{"limit": "2"})
	w := httptest.NewRecorder()
	h.Preview(w, authedRequest(http.MethodPost, "/api/preview", body, ct, "user-1"))

	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Count    int `json:"count"`
		Messages []struct {
			Text string `json:"text_content"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 2 || len(resp.Messages) != 2 {
		t.Fatalf("count %d, messages %d", resp.Count, len(resp.Messages))
	}
	if resp.Messages[0].Text != "first message here" {
		t.Fatalf("first %q", resp.Messages[0].Text)
	}
}

func TestPreviewDefaultLimit(t *testing.T) {
	h := NewPreviewHandler(nil, testConfig())

	body, ct := multipartUpload(t, "export.json", sampleExport, nil)
	w := httptest.NewRecorder()
	h.Preview(w, authedRequest(http.MethodPost, "/api/preview", body, ct, "user-1"))

	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var resp struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// Fewer messages than the default limit: all of them come back.
	if resp.Count != 3 {
		t.Fatalf("count %d", resp.Count)
	}
}

func TestPreviewEmptyExportIsEmptyList(t *testing.T) {
	h := NewPreviewHandler(nil, testConfig())

	body, ct := multipartUpload(t, "export.json", `{"messages":[]}`, nil)
	w := httptest.NewRecorder()
	h.Preview(w, authedRequest(http.MethodPost, "/api/preview", body, ct, "user-1"))

	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var resp struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 0 {
		t.Fatalf("count %d", resp.Count)
	}
}
