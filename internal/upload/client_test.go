package upload

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"clubcard-pipeline/internal/model"
	"clubcard-pipeline/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blobServer fakes both the signed-URL endpoint and the blob store it
// points at.
type blobServer struct {
	mu    sync.Mutex
	blobs map[string][]byte

	putFailures int
	server      *httptest.Server
}

func newBlobServer(t *testing.T) *blobServer {
	t.Helper()
	bs := &blobServer{blobs: make(map[string][]byte)}

	mux := http.NewServeMux()
	mux.HandleFunc("/sign", func(w http.ResponseWriter, r *http.Request) {
		blobName := r.URL.Query().Get("blobName")
		if blobName == "" {
			http.Error(w, "missing blobName", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"signedUrl": bs.server.URL + "/blob/" + blobName,
		})
	})
	mux.HandleFunc("/blob/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			http.Error(w, "PUT only", http.StatusMethodNotAllowed)
			return
		}
		if r.Header.Get("x-ms-blob-type") != "BlockBlob" {
			http.Error(w, "missing blob type header", http.StatusBadRequest)
			return
		}

		bs.mu.Lock()
		defer bs.mu.Unlock()
		if bs.putFailures > 0 {
			bs.putFailures--
			http.Error(w, "transient", http.StatusInternalServerError)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		bs.blobs[strings.TrimPrefix(r.URL.Path, "/blob/")] = body
		w.WriteHeader(http.StatusCreated)
	})

	bs.server = httptest.NewServer(mux)
	t.Cleanup(bs.server.Close)
	return bs
}

func (bs *blobServer) blobNames() []string {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	names := make([]string, 0, len(bs.blobs))
	for name := range bs.blobs {
		names = append(names, name)
	}
	return names
}

func testClient(bs *blobServer) *Client {
	c := New(bs.server.URL + "/sign")
	c.retryDelay = time.Millisecond
	c.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func sampleBundle(products int) *pipeline.Bundle {
	bundle := &pipeline.Bundle{
		Purchases: []model.AnonPurchase{{Date: "2024-01-01", StoreID: "4425", Hash: "abc"}},
		Weekly:    []model.AnonWeekly{{WeekCommencing: "2024-01-01", Outcode: "AB12"}},
	}
	for i := 0; i < products; i++ {
		bundle.Products = append(bundle.Products, model.AnonProduct{Date: "2024-01-01", Name: "Milk"})
	}
	return bundle
}

func TestContributeUploadsAllPayloads(t *testing.T) {
	bs := newBlobServer(t)

	err := testClient(bs).Contribute(context.Background(), sampleBundle(3))
	require.NoError(t, err)

	names := bs.blobNames()
	require.Len(t, names, 3)
	assert.Contains(t, names, "clubcardPurchases-2024-06-01T12:00:00Z")
	assert.Contains(t, names, "clubcardWeeklyPurchases-2024-06-01T12:00:00Z")
	assert.Contains(t, names, "clubcardProducts-2024-06-01T12:00:00Z-0")
}

func TestContributeChunksProducts(t *testing.T) {
	bs := newBlobServer(t)

	err := testClient(bs).Contribute(context.Background(), sampleBundle(ProductChunkSize+1))
	require.NoError(t, err)

	names := bs.blobNames()
	require.Len(t, names, 4)
	assert.Contains(t, names, "clubcardProducts-2024-06-01T12:00:00Z-0")
	assert.Contains(t, names, "clubcardProducts-2024-06-01T12:00:00Z-1")
}

func TestContributeRetriesTransientFailures(t *testing.T) {
	bs := newBlobServer(t)
	bs.putFailures = 2

	err := testClient(bs).Contribute(context.Background(), sampleBundle(1))
	assert.NoError(t, err)
}

func TestContributeGivesUpAfterMaxRetries(t *testing.T) {
	bs := newBlobServer(t)
	bs.putFailures = 100

	err := testClient(bs).Contribute(context.Background(), sampleBundle(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload failed after 3 attempts")
}

func TestContributeSignedURLFailure(t *testing.T) {
	bs := newBlobServer(t)
	c := New(bs.server.URL + "/missing")
	c.retryDelay = time.Millisecond

	err := c.Contribute(context.Background(), sampleBundle(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch signed URL")
}

func TestContributeRespectsContextCancellation(t *testing.T) {
	bs := newBlobServer(t)
	bs.putFailures = 100

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := testClient(bs).Contribute(ctx, sampleBundle(1))
	assert.Error(t, err)
}

func TestChunkProducts(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	chunks := chunkProducts(items, 2)
	require.Len(t, chunks, 3)
	assert.Equal(t, []int{1, 2}, chunks[0])
	assert.Equal(t, []int{3, 4}, chunks[1])
	assert.Equal(t, []int{5}, chunks[2])

	assert.Nil(t, chunkProducts([]int(nil), 2))
}

func TestFetchSignedURLRejectsEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	t.Cleanup(server.Close)

	c := New(server.URL)
	_, err := c.fetchSignedURL(context.Background(), "blob")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signed URL response was empty")
}
