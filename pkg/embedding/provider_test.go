package embedding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	p, err := NewProvider("", "", "", "")
	require.NoError(t, err)
	assert.IsType(t, &OllamaProvider{}, p)

	_, err = NewProvider("gemini", "", "", "")
	assert.Error(t, err)

	_, err = NewProvider("openai", "", "", "")
	assert.ErrorContains(t, err, "unsupported")
}

func TestOllamaEmbeddingNormalized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		_, _ = w.Write([]byte(`{"embedding":[3,4]}`))
	}))
	defer srv.Close()

	resp, err := NewOllamaProvider(srv.URL, "nomic-embed-text").Generate(context.Background(), "hello", TaskRetrievalQuery)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.6, 0.8}, resp.Embedding.Values, 1e-6)
}

func TestNormalizeZeroVector(t *testing.T) {
	assert.Equal(t, []float32{0, 0}, normalizeVector([]float32{0, 0}))
}
