package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/grocer/services/assistant/config"
	"example.com/grocer/services/assistant/internal/models"
	"example.com/grocer/services/assistant/internal/workflow"
)

// Client calls the vision extraction service, which reads a stored
// grocery-list image and returns the items written on it.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a new extraction client
func NewClient(cfg config.ExtractorConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		http:     &http.Client{Timeout: timeout},
	}
}

type extractRequest struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

type extractedItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Unit     string `json:"unit"`
}

type extractResponse struct {
	Items []extractedItem `json:"items"`
}

// ExtractItems sends the image reference to the extraction service and
// returns the items it read. An unreadable image, a service rejection or
// an empty item list are all ExtractionErrors; transport failures stay
// plain errors so callers can tell them apart.
func (c *Client) ExtractItems(ctx context.Context, ref models.ImageRef) ([]models.RequestedItem, error) {
	payload, err := json.Marshal(extractRequest{Bucket: ref.Bucket, Key: ref.Key})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode extraction request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/extract", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build extraction request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "extraction service unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read extraction response")
	}

	if resp.StatusCode != http.StatusOK {
		log.Warn().
			Int("status", resp.StatusCode).
			Str("bucket", ref.Bucket).
			Str("key", ref.Key).
			Msg("Extraction service rejected image")
		return nil, &workflow.ExtractionError{Reason: "extraction service returned status " + resp.Status}
	}

	var out extractResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &workflow.ExtractionError{Reason: "malformed extraction response"}
	}

	if len(out.Items) == 0 {
		return nil, &workflow.ExtractionError{Reason: "no grocery items found in image"}
	}

	items := make([]models.RequestedItem, 0, len(out.Items))
	for _, it := range out.Items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			continue
		}
		quantity := it.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		items = append(items, models.RequestedItem{
			Name:     name,
			Quantity: quantity,
			Unit:     it.Unit,
		})
	}

	if len(items) == 0 {
		return nil, &workflow.ExtractionError{Reason: "no usable grocery items found in image"}
	}

	log.Info().
		Str("bucket", ref.Bucket).
		Str("key", ref.Key).
		Int("items", len(items)).
		Msg("Items extracted from image")

	return items, nil
}
