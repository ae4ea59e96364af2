package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/hierag/internal/core/domain"
)

func newServer(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[]}`))
		case "/api/embed":
			var req embedRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "bge-m3", req.Model)
			out := embedResponse{}
			for i := range req.Input {
				vec := make([]float32, dims)
				vec[0] = float32(i + 1)
				out.Embeddings = append(out.Embeddings, vec)
			}
			_ = json.NewEncoder(w).Encode(out)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc := NewEmbeddingService(Config{})
	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, DefaultDimensions, svc.Dimensions())
	assert.Equal(t, DefaultBaseURL, svc.baseURL)
}

func TestEmbeddingService_EmbedBatch(t *testing.T) {
	server := newServer(t, 3)
	defer server.Close()
	svc := NewEmbeddingService(Config{BaseURL: server.URL + "/", Model: "bge-m3", Dimensions: 3})

	vecs, err := svc.EmbedBatch(context.Background(), []string{"第一章", "第二章"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, float32(1), vecs[0][0])
	assert.Equal(t, float32(2), vecs[1][0])

	vec, err := svc.Embed(context.Background(), "總則")
	require.NoError(t, err)
	assert.Len(t, vec, 3)

	assert.NoError(t, svc.Ping(context.Background()))
}

func TestEmbeddingService_DimensionMismatch(t *testing.T) {
	server := newServer(t, 5)
	defer server.Close()
	svc := NewEmbeddingService(Config{BaseURL: server.URL, Model: "bge-m3", Dimensions: 3})

	_, err := svc.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestEmbeddingService_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{"model not pulled", http.StatusNotFound, false},
		{"bad request", http.StatusBadRequest, false},
		{"overloaded", http.StatusServiceUnavailable, true},
		{"internal error", http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, `{"error":"boom"}`, tt.status)
			}))
			defer server.Close()
			svc := NewEmbeddingService(Config{BaseURL: server.URL, Model: "bge-m3"})

			_, err := svc.EmbedBatch(context.Background(), []string{"x"})
			require.Error(t, err)
			assert.Equal(t, tt.transient, domain.IsRetryable(err))
			assert.Contains(t, err.Error(), "boom")
		})
	}

	t.Run("connection refused is transient", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()
		svc := NewEmbeddingService(Config{BaseURL: url})

		_, err := svc.Embed(context.Background(), "x")
		assert.ErrorIs(t, err, domain.ErrEmbeddingTransient)
		assert.Error(t, svc.Ping(context.Background()))
	})
}
