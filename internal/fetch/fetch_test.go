package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_GetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jobs":[{"title":"SRE"}]}`))
	}))
	defer srv.Close()

	var got struct {
		Jobs []struct {
			Title string `json:"title"`
		} `json:"jobs"`
	}
	require.NoError(t, NewClient(Options{}).GetJSON(context.Background(), srv.URL, &got))
	require.Len(t, got.Jobs, 1)
	assert.Equal(t, "SRE", got.Jobs[0].Title)
}

func TestClient_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "skillxpress-test/2", r.Header.Get("User-Agent"))
		assert.Empty(t, r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	resp, err := NewClient(Options{UserAgent: "skillxpress-test/2"}).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(resp.Body))
	assert.Equal(t, "text/plain", resp.ContentType)
}

func TestClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	tests := []struct {
		name       string
		url        string
		wantStatus int
		wantMsg    string
	}{
		{"invalid url", "not-a-valid-url", 0, "invalid URL"},
		{"not found", srv.URL + "/missing", http.StatusNotFound, "HTTP status 404"},
		{"bad json", srv.URL, http.StatusOK, "decode body"},
	}
	client := NewClient(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v map[string]any
			err := client.GetJSON(context.Background(), tt.url, &v)

			var fetchErr *Error
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, tt.wantStatus, fetchErr.Status)
			assert.False(t, fetchErr.Timeout)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := NewClient(Options{Timeout: 30 * time.Millisecond})
	assert.Equal(t, 30*time.Millisecond, client.Timeout())

	_, err := client.Get(context.Background(), srv.URL)
	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.True(t, fetchErr.Timeout)
	assert.Contains(t, err.Error(), "timed out")
}

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"empty", "   ", ""},
		{"paragraphs", "<p>We use <b>Go</b> and   Kubernetes.</p><p>Remote first.</p>", "We use Go and Kubernetes.\nRemote first."},
		{"lists", "<ul><li>React</li><li>Node.js</li></ul>", "React\nNode.js"},
		{"line breaks", "Docker<br>AWS<br/>SQL", "Docker\nAWS\nSQL"},
		{"drops scripts", "<div>Python<script>alert(1)</script></div><style>p{}</style>", "Python"},
		{"entities", "<p>C&#43;&#43; &amp; Rust</p>", "C++ & Rust"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HTMLToText(tt.html)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
