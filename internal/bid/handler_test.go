package bid

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/model"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/store"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

// newTestRouter wires the bid routes without the auth middleware so handler
// behavior can be exercised directly.
func newTestRouter(svc *bidService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := bidHandler{bidService: *svc}

	routes := router.Group("/games/:gameId/bids")
	routes.POST("/place", handler.placeBid)
	routes.GET("", handler.getGameBids)
	routes.GET("/mine", handler.getMyBids)
	routes.DELETE("/:bidId", handler.cancelBid)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestPlaceBidEndpoint(t *testing.T) {
	mem := store.NewMemory()
	svc, _ := newTestService(mem)
	seedGame(t, mem, model.GameTypeAuctioneer, model.GameBidding, 100, 0)
	seedUserAndParticipant(t, mem, "user-1", "eddy")
	router := newTestRouter(svc)

	recorder := postJSON(t, router, "/games/game-1/bids/place", PlaceBidRequest{
		UserId:      "user-1",
		RiderNameId: "pogacar",
		Amount:      50,
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var response struct {
		Success bool      `json:"success"`
		BidId   string    `json:"bidId"`
		Bid     model.Bid `json:"bid"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatal(err)
	}
	if !response.Success || response.BidId == "" {
		t.Errorf("unexpected response: %+v", response)
	}
	if response.Bid.Amount != 50 {
		t.Errorf("expected amount 50 in response, got %d", response.Bid.Amount)
	}
}

func TestPlaceBidEndpointValidation(t *testing.T) {
	mem := store.NewMemory()
	svc, _ := newTestService(mem)
	router := newTestRouter(svc)

	// Missing amount fails binding before the service runs.
	recorder := postJSON(t, router, "/games/game-1/bids/place", map[string]any{
		"userId":      "user-1",
		"riderNameId": "pogacar",
	})
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing amount, got %d", recorder.Code)
	}

	recorder = postJSON(t, router, "/games/game-1/bids/place", map[string]any{
		"userId":      "user-1",
		"riderNameId": "pogacar",
		"amount":      -5,
	})
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-positive amount, got %d", recorder.Code)
	}
}

func TestPlaceBidEndpointKillSwitch(t *testing.T) {
	mem := store.NewMemory()
	svc, _ := newTestService(mem)
	seedGame(t, mem, model.GameTypeAuctioneer, model.GameBidding, 100, 0)
	seedUserAndParticipant(t, mem, "user-1", "eddy")
	router := newTestRouter(svc)

	viper.Set("BIDDING_DISABLED", true)
	defer viper.Set("BIDDING_DISABLED", false)

	recorder := postJSON(t, router, "/games/game-1/bids/place", PlaceBidRequest{
		UserId:      "user-1",
		RiderNameId: "pogacar",
		Amount:      50,
	})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 while bidding disabled, got %d", recorder.Code)
	}
	if bids := activeBids(t, mem, "game-1", "user-1"); len(bids) != 0 {
		t.Errorf("expected no bids while disabled, got %d", len(bids))
	}
}

func TestGetGameBidsEndpointSortsAndPaginates(t *testing.T) {
	mem := store.NewMemory()
	svc, _ := newTestService(mem)
	seedGame(t, mem, model.GameTypeAuctioneer, model.GameBidding, 1000, 0)
	router := newTestRouter(svc)

	ctx := context.Background()
	for i, amount := range []int64{10, 50, 30} {
		if err := mem.Set(ctx, store.Bids, string(rune('a'+i)), model.Bid{
			GameId: "game-1", UserId: "user-1", RiderNameId: string(rune('a' + i)),
			Amount: amount, Status: model.BidActive,
		}); err != nil {
			t.Fatal(err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/games/game-1/bids?page_size=2", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var response struct {
		Items         []model.Bid `json:"items"`
		NextPageToken int64       `json:"nextPageToken"`
		ItemCount     int64       `json:"itemCount"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatal(err)
	}
	if response.ItemCount != 3 {
		t.Errorf("expected item count 3, got %d", response.ItemCount)
	}
	if len(response.Items) != 2 {
		t.Fatalf("expected 2 items on page, got %d", len(response.Items))
	}
	if response.Items[0].Amount != 50 || response.Items[1].Amount != 30 {
		t.Errorf("expected amounts sorted desc, got %d, %d", response.Items[0].Amount, response.Items[1].Amount)
	}
	if response.NextPageToken != 1 {
		t.Errorf("expected next page token 1, got %d", response.NextPageToken)
	}
}
