package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uroflux/intake-api/internal/config"
)

type capturedRequest struct {
	method string
	path   string
	auth   string
	body   map[string]interface{}
}

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := NewClient(config.WhatsAppConfig{
		APIBaseURL: srv.URL,
		Token:      "test-token",
		PhoneID:    "123456",
	}, zerolog.Nop())
	return client, srv
}

func capture(t *testing.T, out *capturedRequest, status int, response string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		out.method = r.Method
		out.path = r.URL.Path
		out.auth = r.Header.Get("Authorization")
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&out.body)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}
}

func TestSendText(t *testing.T) {
	var got capturedRequest
	client, srv := newTestClient(capture(t, &got, http.StatusOK, `{}`))
	defer srv.Close()

	err := client.SendText(context.Background(), "+5511999990000", "hello")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/123456/messages", got.path)
	assert.Equal(t, "Bearer test-token", got.auth)
	assert.Equal(t, "whatsapp", got.body["messaging_product"])
	assert.Equal(t, "text", got.body["type"])
	text, ok := got.body["text"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "hello", text["body"])
}

func TestSendTemplate(t *testing.T) {
	var got capturedRequest
	client, srv := newTestClient(capture(t, &got, http.StatusOK, `{}`))
	defer srv.Close()

	err := client.SendTemplate(context.Background(), "+5511999990000", "uroflux_instrucoes_audio", "pt_BR", nil)
	require.NoError(t, err)

	assert.Equal(t, "template", got.body["type"])
	tmpl, ok := got.body["template"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "uroflux_instrucoes_audio", tmpl["name"])
	lang, ok := tmpl["language"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "pt_BR", lang["code"])
	assert.NotContains(t, tmpl, "components")
}

func TestSendDocument(t *testing.T) {
	var got capturedRequest
	client, srv := newTestClient(capture(t, &got, http.StatusOK, `{}`))
	defer srv.Close()

	err := client.SendDocument(context.Background(),
		"+5511999990000", "https://blobs.test/reports/r.pdf", "resultado_uroflux.pdf", "Seu resultado UroFlux")
	require.NoError(t, err)

	doc, ok := got.body["document"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "https://blobs.test/reports/r.pdf", doc["link"])
	assert.Equal(t, "resultado_uroflux.pdf", doc["filename"])
	assert.Equal(t, "Seu resultado UroFlux", doc["caption"])
}

func TestResolveMediaURL(t *testing.T) {
	var got capturedRequest
	client, srv := newTestClient(capture(t, &got, http.StatusOK, `{"url": "https://lookaside.test/media/M1"}`))
	defer srv.Close()

	url, err := client.ResolveMediaURL(context.Background(), "M1")
	require.NoError(t, err)
	assert.Equal(t, "https://lookaside.test/media/M1", url)
	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/M1", got.path)
}

func TestResolveMediaURL_MissingURL(t *testing.T) {
	var got capturedRequest
	client, srv := newTestClient(capture(t, &got, http.StatusOK, `{}`))
	defer srv.Close()

	_, err := client.ResolveMediaURL(context.Background(), "M1")
	assert.Error(t, err)
}

func TestDownloadMedia(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte("ogg-bytes"))
	})
	defer srv.Close()

	data, err := client.DownloadMedia(context.Background(), srv.URL+"/media/M1")
	require.NoError(t, err)
	assert.Equal(t, []byte("ogg-bytes"), data)
}

func TestNon2xxReturnsUpstreamError(t *testing.T) {
	var got capturedRequest
	client, srv := newTestClient(capture(t, &got, http.StatusTooManyRequests, `{"error": "rate limited"}`))
	defer srv.Close()

	err := client.SendText(context.Background(), "+5511999990000", "hello")

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusTooManyRequests, upstream.StatusCode)
	assert.Contains(t, upstream.Body, "rate limited")
}
