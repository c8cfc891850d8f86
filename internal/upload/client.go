// Package upload posts anonymized payloads to blob storage through
// pre-signed URLs. It receives already-anonymized data only; retry
// policy lives here, not in the pipeline.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"clubcard-pipeline/internal/pipeline"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("log")

// ProductChunkSize bounds one product upload; blob writes above this
// size run into transport limits.
const ProductChunkSize = 10000

const (
	defaultMaxRetries = 3
	defaultRetryDelay = time.Second
)

// Client uploads anonymized datasets. Each blob destination is
// authorized independently through the signed-URL endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
	now        func() time.Time
}

// New returns a client for the given signed-URL endpoint.
func New(endpoint string) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
		now:        time.Now,
	}
}

// Contribute uploads the whole anonymized bundle: purchases, weekly
// totals and products, the last split into chunks of at most
// ProductChunkSize rows. Uploads run side by side; the first failure is
// reported after all have settled.
func (c *Client) Contribute(ctx context.Context, bundle *pipeline.Bundle) error {
	stamp := c.now().UTC().Format(time.RFC3339)

	type job struct {
		blobName string
		payload  interface{}
	}
	jobs := []job{
		{blobName: "clubcardPurchases-" + stamp, payload: bundle.Purchases},
		{blobName: "clubcardWeeklyPurchases-" + stamp, payload: bundle.Weekly},
	}
	for i, chunk := range chunkProducts(bundle.Products, ProductChunkSize) {
		jobs = append(jobs, job{
			blobName: fmt.Sprintf("clubcardProducts-%s-%d", stamp, i),
			payload:  chunk,
		})
	}

	errs := make([]error, len(jobs))
	var wg sync.WaitGroup
	for i, j := range jobs {
		wg.Add(1)
		go func(i int, j job) {
			defer wg.Done()
			errs[i] = c.uploadBlob(ctx, j.blobName, j.payload)
		}(i, j)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	log.Infof("All %d anonymized payloads uploaded", len(jobs))
	return nil
}

func (c *Client) uploadBlob(ctx context.Context, blobName string, payload interface{}) error {
	signedURL, err := c.fetchSignedURL(ctx, blobName)
	if err != nil {
		return fmt.Errorf("blob %s: %w", blobName, err)
	}
	if err := c.putJSON(ctx, signedURL, payload); err != nil {
		return fmt.Errorf("blob %s: %w", blobName, err)
	}
	return nil
}

// fetchSignedURL asks the endpoint for a write-authorized URL scoped to
// one blob name.
func (c *Client) fetchSignedURL(ctx context.Context, blobName string) (string, error) {
	reqURL := c.endpoint + "?blobName=" + url.QueryEscape(blobName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch signed URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch signed URL: %s", resp.Status)
	}

	var body struct {
		SignedURL string `json:"signedUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode signed URL response: %w", err)
	}
	if body.SignedURL == "" {
		return "", fmt.Errorf("signed URL response was empty")
	}
	return body.SignedURL, nil
}

// putJSON uploads a JSON payload to a signed blob URL, retrying with a
// doubling delay between attempts.
func (c *Client) putJSON(ctx context.Context, signedURL string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	delay := c.retryDelay
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPut, signedURL, bytes.NewReader(data))
		if err != nil {
			return err
		}
		req.Header.Set("x-ms-blob-type", "BlockBlob")
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			log.Warningf("Upload attempt %d failed: %v", attempt+1, err)
			continue
		}
		resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("server responded with status %d", resp.StatusCode)
		log.Warningf("Upload attempt %d failed: %v", attempt+1, lastErr)
	}
	return fmt.Errorf("upload failed after %d attempts: %w", c.maxRetries, lastErr)
}

func chunkProducts[T any](items []T, size int) [][]T {
	var chunks [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
