package middleware

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoExpenseTitle возвращает название расхода из тела запроса либо 204 для DELETE.
func echoExpenseTitle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodDelete {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"title": req.Title})
}

func gzipBytes(t *testing.T, s string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return &buf
}

func TestGzipMiddleware(t *testing.T) {
	tests := []struct {
		name            string
		method          string
		body            func(t *testing.T) io.Reader
		acceptEncoding  string
		contentEncoding string
		wantStatus      int
		wantEncoding    string
		wantBody        string
	}{
		{
			name:           "compresses json response",
			method:         http.MethodPost,
			body:           func(*testing.T) io.Reader { return strings.NewReader(`{"title":"Groceries"}`) },
			acceptEncoding: "gzip, deflate",
			wantStatus:     http.StatusCreated,
			wantEncoding:   "gzip",
			wantBody:       `{"title":"Groceries"}`,
		},
		{
			name:         "plain response without accept-encoding",
			method:       http.MethodPost,
			body:         func(*testing.T) io.Reader { return strings.NewReader(`{"title":"Rent"}`) },
			wantStatus:   http.StatusCreated,
			wantEncoding: "",
			wantBody:     `{"title":"Rent"}`,
		},
		{
			name:            "decompresses request body",
			method:          http.MethodPost,
			body:            func(t *testing.T) io.Reader { return gzipBytes(t, `{"title":"Internet"}`) },
			contentEncoding: "gzip",
			wantStatus:      http.StatusCreated,
			wantEncoding:    "",
			wantBody:        `{"title":"Internet"}`,
		},
		{
			name:            "rejects broken gzip body",
			method:          http.MethodPost,
			body:            func(*testing.T) io.Reader { return strings.NewReader("not gzip at all") },
			contentEncoding: "gzip",
			wantStatus:      http.StatusBadRequest,
			wantBody:        "invalid gzip body",
		},
		{
			name:            "decompresses x-gzip token case-insensitively",
			method:          http.MethodPost,
			body:            func(t *testing.T) io.Reader { return gzipBytes(t, `{"title":"Water"}`) },
			contentEncoding: "X-GZIP",
			wantStatus:      http.StatusCreated,
			wantEncoding:    "",
			wantBody:        `{"title":"Water"}`,
		},
		{
			name:            "rejects stacked encodings",
			method:          http.MethodPost,
			body:            func(t *testing.T) io.Reader { return gzipBytes(t, `{"title":"Power"}`) },
			contentEncoding: "gzip, br",
			wantStatus:      http.StatusUnsupportedMediaType,
			wantBody:        "unsupported content encoding",
		},
		{
			name:            "rejects unknown encoding",
			method:          http.MethodPost,
			body:            func(*testing.T) io.Reader { return strings.NewReader(`{"title":"Gas"}`) },
			contentEncoding: "br",
			wantStatus:      http.StatusUnsupportedMediaType,
			wantBody:        "unsupported content encoding",
		},
		{
			name:           "gzip refused with q=0",
			method:         http.MethodPost,
			body:           func(*testing.T) io.Reader { return strings.NewReader(`{"title":"Phone"}`) },
			acceptEncoding: "gzip;q=0, identity",
			wantStatus:     http.StatusCreated,
			wantEncoding:   "",
			wantBody:       `{"title":"Phone"}`,
		},
		{
			name:           "no content stays unencoded",
			method:         http.MethodDelete,
			body:           func(*testing.T) io.Reader { return http.NoBody },
			acceptEncoding: "gzip",
			wantStatus:     http.StatusNoContent,
			wantEncoding:   "",
			wantBody:       "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/flats/1/expenses", tt.body(t))
			req.Header.Set("Content-Type", "application/json")
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			if tt.contentEncoding != "" {
				req.Header.Set("Content-Encoding", tt.contentEncoding)
			}

			rec := httptest.NewRecorder()
			GzipMiddleware(http.HandlerFunc(echoExpenseTitle)).ServeHTTP(rec, req)

			res := rec.Result()
			defer res.Body.Close()

			assert.Equal(t, tt.wantStatus, res.StatusCode)
			assert.Equal(t, tt.wantEncoding, res.Header.Get("Content-Encoding"))

			var reader io.Reader = res.Body
			if res.Header.Get("Content-Encoding") == "gzip" {
				gr, err := gzip.NewReader(res.Body)
				require.NoError(t, err)
				defer gr.Close()
				reader = gr
			}
			body, err := io.ReadAll(reader)
			require.NoError(t, err)

			if tt.wantBody == "" {
				assert.Empty(t, body)
				return
			}
			assert.Contains(t, string(body), tt.wantBody)
		})
	}
}
