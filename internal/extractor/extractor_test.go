package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/grocer/services/assistant/config"
	"example.com/grocer/services/assistant/internal/models"
	"example.com/grocer/services/assistant/internal/workflow"
)

func newTestClient(url string) *Client {
	return NewClient(config.ExtractorConfig{Endpoint: url, Timeout: 5 * time.Second})
}

func TestExtractItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/extract", r.URL.Path)

		var req extractRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "lists", req.Bucket)
		require.Equal(t, "img.jpg", req.Key)

		json.NewEncoder(w).Encode(extractResponse{Items: []extractedItem{
			{Name: "Milk", Quantity: 2, Unit: "litre"},
			{Name: "Bread", Quantity: 0},
			{Name: "   "},
		}})
	}))
	defer server.Close()

	items, err := newTestClient(server.URL).ExtractItems(context.Background(), models.ImageRef{Bucket: "lists", Key: "img.jpg"})

	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "Milk", items[0].Name)
	require.Equal(t, 2, items[0].Quantity)

	// Missing quantity defaults to one; blank names are dropped
	require.Equal(t, "Bread", items[1].Name)
	require.Equal(t, 1, items[1].Quantity)
}

func TestExtractItemsEmptyList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(extractResponse{})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ExtractItems(context.Background(), models.ImageRef{Bucket: "lists", Key: "empty.jpg"})

	var extractionErr *workflow.ExtractionError
	require.ErrorAs(t, err, &extractionErr)
}

func TestExtractItemsServiceRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unreadable image", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ExtractItems(context.Background(), models.ImageRef{Bucket: "lists", Key: "blurry.jpg"})

	var extractionErr *workflow.ExtractionError
	require.ErrorAs(t, err, &extractionErr)
}

func TestExtractItemsTransportFailureIsNotExtractionError(t *testing.T) {
	// Closed server: connection refused
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := newTestClient(server.URL).ExtractItems(context.Background(), models.ImageRef{Bucket: "lists", Key: "img.jpg"})

	require.Error(t, err)
	var extractionErr *workflow.ExtractionError
	require.False(t, errors.As(err, &extractionErr))
}
