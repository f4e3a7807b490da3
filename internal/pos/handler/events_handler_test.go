package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-pos/internal/pos/events"
	"github.com/bitfantasy/nimo-pos/internal/pos/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestEventsStream_DeliversAndUnregisters(t *testing.T) {
	hub := events.NewHub(zaptest.NewLogger(t))
	router := testutil.SetupRouter()
	testutil.AuthGroup(router, "/api/v1/pos").GET("/events", NewEventsHandler(hub).Stream)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/pos/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+testutil.DefaultTestToken())
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		router.ServeHTTP(w, req)
		close(done)
	}()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	hub.Publish(events.TypeStockAlert, map[string]string{"product_id": "p1"})
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream did not stop after client disconnect")
	}

	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "event: connected")
	assert.Contains(t, body, "event: stock_alert\ndata: {\"product_id\":\"p1\"}")
}

func TestEventsStream_DisabledHub(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := testutil.SetupRouter()
	testutil.AuthGroup(router, "/api/v1/pos").GET("/events", NewEventsHandler(nil).Stream)

	w := testutil.DoRequest(router, http.MethodGet, "/api/v1/pos/events", nil, testutil.DefaultTestToken())
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
