package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowOrigins(t *testing.T) {
	h := AllowOrigins("http://localhost:5173/")(ok)

	tests := []struct {
		name   string
		header map[string]string
		want   int
	}{
		{"no origin", nil, http.StatusOK},
		{"configured ui", map[string]string{"Origin": "http://localhost:5173"}, http.StatusOK},
		{"same host", map[string]string{"Origin": "http://localhost:8090"}, http.StatusOK},
		{"foreign page", map[string]string{"Origin": "https://evil.example"}, http.StatusForbidden},
		{"null origin", map[string]string{"Origin": "null"}, http.StatusForbidden},
		{"cross-site without origin", map[string]string{"Sec-Fetch-Site": "cross-site"}, http.StatusForbidden},
		{"same-site without origin", map[string]string{"Sec-Fetch-Site": "same-origin"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "http://localhost:8090/api/orders", nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusForbidden {
				assert.JSONEq(t, `{"error":"origin not allowed"}`, rec.Body.String())
			}
		})
	}
}
