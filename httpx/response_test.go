package httpx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestJSONError(t *testing.T) {
	w := httptest.NewRecorder()
	JSONError(w, http.StatusConflict, "referential_conflict", map[string]string{"id": "c1"})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	if got := w.Body.String(); got != `{"error":"referential_conflict","details":{"id":"c1"}}` {
		t.Fatalf("body = %s", got)
	}
}

func TestDecode(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"acme"}`))
	if err := Decode(r, &dst); err != nil || dst.Name != "acme" {
		t.Fatalf("Decode() = %v, %+v", err, dst)
	}

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"acme","extra":1}`))
	if err := Decode(r, &dst); err == nil {
		t.Fatal("unknown field accepted")
	}

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}{"name":"b"}`))
	if err := Decode(r, &dst); err == nil {
		t.Fatal("trailing data accepted")
	}
}
