package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
)

func TestAssertJSONResponse(t *testing.T) {
	rr := httptest.NewRecorder()
	rr.Header().Set("Content-Type", "application/json")
	rr.Body.Write(MustMarshalJSON(t, map[string]string{"status": "ok", "message": "up"}))

	resp := AssertJSONResponse(t, rr, "ok")
	if resp["message"] != "up" {
		t.Errorf("expected message 'up', got %v", resp["message"])
	}
}

func TestNewFormRequest(t *testing.T) {
	req := NewFormRequest(http.MethodPost, "/get", url.Values{"msg": {"where is my order?"}})
	if err := req.ParseForm(); err != nil {
		t.Fatalf("ParseForm failed: %v", err)
	}
	if got := req.PostForm.Get("msg"); got != "where is my order?" {
		t.Errorf("expected form value to round trip, got %q", got)
	}
}

func TestWriteFile(t *testing.T) {
	path := WriteFile(t, filepath.Join(t.TempDir(), "orders.csv"), "order_id,status\n")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "order_id,status\n" {
		t.Errorf("unexpected contents %q", data)
	}
}
