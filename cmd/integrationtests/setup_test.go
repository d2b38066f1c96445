package integrationtests

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"auction-bid-engine/internal/bidengine"
	"auction-bid-engine/internal/closer"
	"auction-bid-engine/internal/events"
	model "auction-bid-engine/internal/models"
	"auction-bid-engine/internal/proxy"
	"auction-bid-engine/internal/server"
	"auction-bid-engine/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// testStack bundles the wired components behind a test router.
type testStack struct {
	router     *gin.Engine
	store      *store.MemoryStore
	engine     *bidengine.Engine
	reconciler *proxy.Reconciler
}

// SetupTestStack wires the full service with an in-memory store and a short
// proxy deliberation delay.
func SetupTestStack(t *testing.T) *testStack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	bus := events.NewBus(64)
	st := store.NewMemoryStore()
	engine := bidengine.NewEngine(st, bus)
	reconciler := proxy.NewReconciler(engine, bus, 2*time.Millisecond)
	reconciler.Start()
	t.Cleanup(reconciler.Stop)

	endWatcher := closer.NewCloser(engine)
	t.Cleanup(endWatcher.Stop)

	router := server.SetupRouter(engine, reconciler, endWatcher, bus)
	return &testStack{router: router, store: st, engine: engine, reconciler: reconciler}
}

// SeedAuction creates an active auction directly in the store.
func (s *testStack) SeedAuction(t *testing.T, auctionID string, basePrice, minIncrement int64) {
	t.Helper()
	_, err := s.store.CreateAuction(model.Auction{
		AuctionID:    auctionID,
		Title:        auctionID + " title",
		BasePrice:    decimal.NewFromInt(basePrice),
		MinIncrement: decimal.NewFromInt(minIncrement),
		EndTime:      time.Now().Add(time.Hour),
		Status:       model.StatusActive,
	})
	if err != nil {
		t.Fatalf("failed to seed auction: %v", err)
	}
}

// ExecuteRequestAndParse executes an HTTP request on the router and parses
// the JSON envelope, returning the data payload for 2xx responses.
func (s *testStack) ExecuteRequestAndParse(t *testing.T, method, url string, body any) (any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	case string:
		reqBody = []byte(v)
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if w.Code >= 200 && w.Code < 300 {
			return resp["data"], w
		}
	}
	return resp, w
}
