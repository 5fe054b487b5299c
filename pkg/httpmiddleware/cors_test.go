package httpmiddleware

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	tests := []struct {
		name    string
		cfg     CORSConfig
		method  string
		headers map[string]string
		code    int
		want    map[string]string
	}{
		{
			name: "preflight with unlisted header",
			cfg: CORSConfig{
				AllowOrigins: []string{"https://shop.example.com"},
				AllowHeaders: []string{"Content-Type"},
			},
			method: http.MethodOptions,
			headers: map[string]string{
				"Origin":                         "https://shop.example.com",
				"Access-Control-Request-Method":  "POST",
				"Access-Control-Request-Headers": "X-Admin-Token",
			},
			code: http.StatusOK,
			want: map[string]string{"Access-Control-Allow-Origin": ""},
		},
		{
			name:    "wildcard",
			cfg:     CORSConfig{},
			headers: map[string]string{"Origin": "https://shop.example.com"},
			code:    http.StatusOK,
			want:    map[string]string{"Access-Control-Allow-Origin": "*"},
		},
		{
			name: "credentials echo origin",
			cfg: CORSConfig{
				AllowOrigins:     []string{"*"},
				AllowCredentials: true,
				ExposeHeaders:    []string{"X-Session-Token"},
			},
			headers: map[string]string{"Origin": "https://shop.example.com"},
			code:    http.StatusOK,
			want: map[string]string{
				"Access-Control-Allow-Origin":      "https://shop.example.com",
				"Access-Control-Allow-Credentials": "true",
				"Access-Control-Expose-Headers":    "X-Session-Token",
			},
		},
		{
			name:    "listed origin matches case-insensitively",
			cfg:     CORSConfig{AllowOrigins: []string{"https://Shop.example.com"}},
			headers: map[string]string{"Origin": "https://shop.example.com"},
			code:    http.StatusOK,
			want:    map[string]string{"Access-Control-Allow-Origin": "https://shop.example.com"},
		},
		{
			name:    "unlisted origin",
			cfg:     CORSConfig{AllowOrigins: []string{"https://shop.example.com"}},
			headers: map[string]string{"Origin": "https://evil.example.com"},
			code:    http.StatusOK,
			want:    map[string]string{"Access-Control-Allow-Origin": "", "Vary": "Origin"},
		},
		{
			name:   "preflight",
			cfg: CORSConfig{
				AllowOrigins: []string{"https://shop.example.com"},
				AllowHeaders: []string{"Content-Type", "X-Session-Token"},
				MaxAge:       600,
			},
			method: http.MethodOptions,
			headers: map[string]string{
				"Origin":                         "https://shop.example.com",
				"Access-Control-Request-Method":  "PATCH",
				"Access-Control-Request-Headers": "Content-Type, X-Session-Token",
			},
			code: http.StatusOK,
			want: map[string]string{
				"Access-Control-Allow-Origin":  "https://shop.example.com",
				"Access-Control-Allow-Methods": "PATCH",
				"Access-Control-Allow-Headers": "Content-Type, X-Session-Token",
				"Access-Control-Max-Age":       "600",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := CORS(tt.cfg)(okHandler())
			w := hit(h, func(r *http.Request) {
				if tt.method != "" {
					r.Method = tt.method
				}
				for k, v := range tt.headers {
					r.Header.Set(k, v)
				}
			})
			assert.Equal(t, tt.code, w.Code)
			for k, v := range tt.want {
				assert.Equal(t, v, w.Header().Get(k), k)
			}
		})
	}
}
