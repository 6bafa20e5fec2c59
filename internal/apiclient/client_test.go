package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func testLogger() arbor.ILogger {
	return arbor.NewLogger()
}

func TestGet(t *testing.T) {
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	handler := httphelpers.HandlerWithResponse(200, headers, []byte(`{"name":"widget","price":9.99}`))
	server := httptest.NewServer(handler)
	defer server.Close()

	client := New(server.URL, testLogger())
	resp, err := client.Get(context.Background(), "/items/1")
	require.NoError(t, err)

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Headers.Get("Content-Type"))

	var item struct {
		Name  string  `json:"name"`
		Price float64 `json:"price"`
	}
	require.NoError(t, resp.JSON(&item))
	assert.Equal(t, "widget", item.Name)
	assert.Equal(t, 9.99, item.Price)
}

func TestPost_SendsJSONBody(t *testing.T) {
	handler, requestsCh := httphelpers.RecordingHandler(httphelpers.HandlerWithStatus(201))
	server := httptest.NewServer(handler)
	defer server.Close()

	client := New(server.URL, testLogger(), WithHeader("Authorization", "Bearer token123"))
	resp, err := client.Post(context.Background(), "items", map[string]string{"name": "widget"})
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)

	info := <-requestsCh
	assert.Equal(t, "POST", info.Request.Method)
	assert.Equal(t, "/items", info.Request.URL.Path)
	assert.Equal(t, "application/json", info.Request.Header.Get("Content-Type"))
	assert.Equal(t, "Bearer token123", info.Request.Header.Get("Authorization"))
	assert.JSONEq(t, `{"name":"widget"}`, string(info.Body))
}

func TestRetry_RecoversFromServerError(t *testing.T) {
	handler := httphelpers.SequentialHandler(
		httphelpers.HandlerWithStatus(503),
		httphelpers.HandlerWithStatus(503),
		httphelpers.HandlerWithStatus(200),
	)
	server := httptest.NewServer(handler)
	defer server.Close()

	client := New(server.URL, testLogger(), WithRetry(3, time.Millisecond))
	resp, err := client.Get(context.Background(), "/flaky")
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestRetry_GivesUpAfterBudget(t *testing.T) {
	handler, requestsCh := httphelpers.RecordingHandler(httphelpers.HandlerWithStatus(500))
	server := httptest.NewServer(handler)
	defer server.Close()

	client := New(server.URL, testLogger(), WithRetry(2, time.Millisecond))
	_, err := client.Get(context.Background(), "/broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")

	// initial attempt plus two retries
	for i := 0; i < 3; i++ {
		select {
		case <-requestsCh:
		default:
			t.Fatalf("expected 3 requests, got %d", i)
		}
	}
}

func TestRetry_DoesNotRetryClientErrors(t *testing.T) {
	handler, requestsCh := httphelpers.RecordingHandler(httphelpers.HandlerWithStatus(404))
	server := httptest.NewServer(handler)
	defer server.Close()

	client := New(server.URL, testLogger(), WithRetry(3, time.Millisecond))
	resp, err := client.Get(context.Background(), "/missing")
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	<-requestsCh
	select {
	case <-requestsCh:
		t.Fatal("unexpected retry of a 404 response")
	default:
	}
}

func TestDelete(t *testing.T) {
	handler, requestsCh := httphelpers.RecordingHandler(httphelpers.HandlerWithStatus(204))
	server := httptest.NewServer(handler)
	defer server.Close()

	client := New(server.URL, testLogger())
	resp, err := client.Delete(context.Background(), "/items/1")
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)

	info := <-requestsCh
	assert.Equal(t, "DELETE", info.Request.Method)
}

func TestContextCancellation(t *testing.T) {
	client := New("http://127.0.0.1:1", testLogger(), WithRetry(5, time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Get(ctx, "/never")
	require.Error(t, err)
}

func TestRetryableStatus(t *testing.T) {
	assert.True(t, retryableStatus(429))
	assert.True(t, retryableStatus(500))
	assert.True(t, retryableStatus(502))
	assert.True(t, retryableStatus(503))
	assert.True(t, retryableStatus(504))
	assert.False(t, retryableStatus(200))
	assert.False(t, retryableStatus(404))
	assert.False(t, retryableStatus(400))
}
