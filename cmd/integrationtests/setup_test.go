package integrationtests

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"auction-house/internal/auction"
	"auction-house/internal/auctionhouse"
	"auction-house/internal/external"
	"auction-house/internal/models"
	"auction-house/internal/repository"
	"auction-house/internal/server"

	"github.com/gin-gonic/gin"
)

// TestEnv bundles the router with the in-memory collaborators so tests can
// seed balances and inspect inventories directly.
type TestEnv struct {
	Router    *gin.Engine
	House     *auctionhouse.AuctionHouse
	Wallet    *external.LocalWallet
	Inventory *external.MemoryInventory
}

// SetupTestEnv initializes the full HTTP stack over in-memory storage.
func SetupTestEnv() *TestEnv {
	gin.SetMode(gin.TestMode)

	wallet := external.NewLocalWallet()
	inventory := external.NewMemoryInventory()
	env := &auction.Env{
		DB:              repository.NewMemoryRepo(),
		Wallet:          wallet,
		Market:          external.NewFlatMarketTier(models.TaxInfo{ListingTaxPct: 2, SellTaxPct: 5, BuyTaxPct: 5, ItemLimit: 5}),
		Notifier:        external.LogNotifier{},
		Inventory:       inventory,
		CountdownWindow: 10 * time.Minute,
		MaxClaimWindow:  7 * 24 * time.Hour,
	}
	house := auctionhouse.New(env, external.LogPresenter{})

	return &TestEnv{
		Router:    server.SetupRouter(house),
		House:     house,
		Wallet:    wallet,
		Inventory: inventory,
	}
}

// ExecuteRequestAndParse executes an HTTP request on the router and parses the
// response envelope.
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
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
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
	}
	return resp, w
}

// data extracts the data payload of a success envelope.
func data(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	d, ok := resp["data"].(map[string]any)
	if !ok {
		t.Fatalf("response has no data object: %v", resp)
	}
	return d
}
