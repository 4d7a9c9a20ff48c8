package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tochadigital/cuidasenior/internal/config"
	"github.com/tochadigital/cuidasenior/internal/models"
)

func analysisServer(t *testing.T, text string, status int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		w.WriteHeader(status)
		if status != http.StatusOK {
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
			},
		})
	}))
}

func newTestClient(baseURL, apiKey string) *AnalysisClient {
	return NewAnalysisClient(config.AIConfig{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   "gemini-2.5-flash",
	}, zap.NewNop())
}

func TestAnalyzeReceipt(t *testing.T) {
	srv := analysisServer(t, `{"amount": 45.9, "date": "2026-03-10", "description": "Farmácia Central"}`, http.StatusOK)
	defer srv.Close()

	client := newTestClient(srv.URL, "test-key")
	result := client.AnalyzeReceipt(context.Background(), "data:image/jpeg;base64,AAAA")

	require.NotNil(t, result)
	assert.Equal(t, 45.9, result.Amount)
	assert.Equal(t, "2026-03-10", result.Date)
	assert.Equal(t, "Farmácia Central", result.Description)
}

func TestAnalyzeReceipt_DisabledWithoutAPIKey(t *testing.T) {
	client := newTestClient("http://unused.invalid", "")
	assert.False(t, client.Enabled())
	assert.Nil(t, client.AnalyzeReceipt(context.Background(), "AAAA"))
}

func TestAnalyzeReceipt_ServerErrorReturnsNil(t *testing.T) {
	srv := analysisServer(t, "", http.StatusInternalServerError)
	defer srv.Close()

	client := newTestClient(srv.URL, "test-key")
	assert.Nil(t, client.AnalyzeReceipt(context.Background(), "AAAA"))
}

func TestAnalyzeReceipt_InvalidJSONReturnsNil(t *testing.T) {
	srv := analysisServer(t, "not a json payload", http.StatusOK)
	defer srv.Close()

	client := newTestClient(srv.URL, "test-key")
	assert.Nil(t, client.AnalyzeReceipt(context.Background(), "AAAA"))
}

func TestHealthInsights(t *testing.T) {
	srv := analysisServer(t, "Pressão estável. Mantenha a medicação.", http.StatusOK)
	defer srv.Close()

	client := newTestClient(srv.URL, "test-key")
	text := client.HealthInsights(context.Background(),
		[]models.VitalLog{{ID: "v1", Date: "2026-03-10", Systolic: 120, Diastolic: 80, Oxygen: 97}},
		[]models.Medication{{ID: "m1", Name: "Losartana"}},
	)
	assert.Equal(t, "Pressão estável. Mantenha a medicação.", text)
}

func TestHealthInsights_FallbackMessages(t *testing.T) {
	// 未配置 Key
	client := newTestClient("http://unused.invalid", "")
	assert.Equal(t, "Configure a API Key para insights.",
		client.HealthInsights(context.Background(), nil, nil))

	// 服务不可用
	srv := analysisServer(t, "", http.StatusServiceUnavailable)
	defer srv.Close()
	client = newTestClient(srv.URL, "test-key")
	assert.Equal(t, "Insights indisponíveis.",
		client.HealthInsights(context.Background(), nil, nil))

	// 服务返回空候选
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer empty.Close()
	client = newTestClient(empty.URL, "test-key")
	assert.Equal(t, "Sem insights disponíveis.",
		client.HealthInsights(context.Background(), nil, nil))
}
