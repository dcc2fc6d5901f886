package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvonguyen/threatlens/internal/analysis"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(Config{
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
	})
}

func TestClient_Entities(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/entities", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req textRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "Cozy Bear activity", req.Text)

		json.NewEncoder(w).Encode(entitiesResponse{
			Entities: []analysis.ExtractedEntity{
				{Type: "ORG", Value: "Cozy Bear", Confidence: 0.93},
			},
		})
	}))

	entities, err := client.Entities(context.Background(), "Cozy Bear activity")
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "ORG", entities[0].Type)
	assert.Equal(t, "Cozy Bear", entities[0].Value)
}

func TestClient_SentimentLowercased(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(sentimentResponse{Sentiment: "NEGATIVE"})
	}))

	sentiment, err := client.Sentiment(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, "negative", sentiment)
}

func TestClient_SentimentEmptyIsUnusable(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(sentimentResponse{})
	}))

	_, err := client.Sentiment(context.Background(), "text")
	assert.ErrorIs(t, err, ErrBadResponse)
}

func TestClient_Classify(t *testing.T) {
	tests := []struct {
		label   string
		want    analysis.Classification
		wantErr bool
	}{
		{"benign", analysis.ClassificationBenign, false},
		{"suspicious", analysis.ClassificationSuspicious, false},
		{"malicious", analysis.ClassificationMalicious, false},
		{"unknown", analysis.ClassificationUnknown, false},
		{"toxic", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(classifyResponse{Classification: tt.label, Score: 0.8})
			}))

			got, err := client.Classify(context.Background(), "text")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_ServerErrorIsUnavailable(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))

	_, err := client.Entities(context.Background(), "text")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_Unreachable(t *testing.T) {
	client := NewClient(Config{
		BaseURL: "http://127.0.0.1:1",
		Timeout: time.Second,
	})

	_, err := client.Sentiment(context.Background(), "text")
	assert.ErrorIs(t, err, ErrUnavailable)

	assert.Error(t, client.HealthCheck(context.Background()))
	assert.Equal(t, 0, client.ModelsLoaded(context.Background()))
}

func TestClient_ModelsLoaded(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/models", r.URL.Path)
		json.NewEncoder(w).Encode(modelsResponse{Models: []string{"ner", "sentiment", "classifier"}})
	}))

	assert.Equal(t, 3, client.ModelsLoaded(context.Background()))
	assert.NoError(t, client.HealthCheck(context.Background()))
}
