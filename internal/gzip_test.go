package internal

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGzipMiddleware(t *testing.T) {
	h := GzipMiddleware(gzip.BestSpeed, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	}))

	t.Run("accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Encoding", "gzip, deflate")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if got := rec.Header().Get("Content-Encoding"); got != "gzip" {
			t.Fatalf("wanted gzip content encoding, got: %q", got)
		}

		gr, err := gzip.NewReader(rec.Body)
		if err != nil {
			t.Fatal(err)
		}

		body, err := io.ReadAll(gr)
		if err != nil {
			t.Fatal(err)
		}

		if string(body) != `{"success":true}` {
			t.Errorf("wrong body: %q", body)
		}
	})

	t.Run("not accepted", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if got := rec.Header().Get("Content-Encoding"); got != "" {
			t.Errorf("wanted no content encoding, got: %q", got)
		}

		if rec.Body.String() != `{"success":true}` {
			t.Errorf("wrong body: %q", rec.Body.String())
		}
	})
}
