package bid

import (
	"net/http"
	"sort"
	"time"

	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/activity"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/middleware"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/model"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/pubsub"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/reject"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/store"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/utils"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/ws"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

const errorBiddingDisabled = "error.bid.bidding-disabled"

type bidHandler struct {
	bidService bidService
}

func RegisterRoutesAndSubscriptions(rg *gin.RouterGroup, st store.Store) {
	handler := bidHandler{
		bidService: bidService{
			store:    st,
			activity: activity.NewLogger(st),
			bridge:   newNotificationBridge(),
			feed:     ws.NewBidFeedHub(),
			locks:    newGameLocks(),
			now:      time.Now,
		},
	}

	routes := rg.Group("/games/:gameId/bids")
	routes.POST("/place", middleware.VerifyAuthToken, handler.placeBid)
	routes.GET("", middleware.VerifyAuthToken, handler.getGameBids)
	routes.GET("/mine", middleware.VerifyAuthToken, handler.getMyBids)
	routes.DELETE("/:bidId", middleware.VerifyAuthToken, handler.cancelBid)

	consumer := &notificationStatusConsumer{activity: handler.bidService.activity}
	go pubsub.Subscribe(pubsub.SubscriptionHandler{
		SubscriptionId: notificationStatusSubscription,
		Handler:        consumer.handleStatusMessage,
	})
}

type PlaceBidRequest struct {
	UserId      string `json:"userId" binding:"required"`
	RiderNameId string `json:"riderNameId" binding:"required"`
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	RiderName   string `json:"riderName"`
	RiderTeam   string `json:"riderTeam"`
	JerseyImage string `json:"jerseyImage"`
}

func (bh *bidHandler) placeBid(c *gin.Context) {
	if viper.GetBool("BIDDING_DISABLED") {
		c.JSON(http.StatusBadRequest, reject.NewProblem().
			WithTitle("Bidding is globally disabled").
			WithStatus(http.StatusBadRequest).
			WithCode(errorBiddingDisabled).
			Build())
		return
	}

	body := PlaceBidRequest{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, reject.RequestValidationProblem())
		return
	}

	bid, err := bh.bidService.placeBid(c.Request.Context(), placeBidCommand{
		GameId:      c.Param("gameId"),
		UserId:      body.UserId,
		RiderNameId: body.RiderNameId,
		Amount:      body.Amount,
		RiderName:   body.RiderName,
		RiderTeam:   body.RiderTeam,
		JerseyImage: body.JerseyImage,
	})
	if err != nil {
		c.JSON(err.Problem.Status, err.Problem)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"bidId":   bid.Id,
		"bid":     bid,
	})
}

func (bh *bidHandler) getGameBids(c *gin.Context) {
	page, pageErr := utils.NewPageRequest(c)
	if pageErr != nil {
		c.JSON(pageErr.Problem.Status, pageErr.Problem)
		return
	}

	bids, err := bh.bidService.gameBids(c.Request.Context(), c.Param("gameId"))
	if err != nil {
		c.JSON(err.Problem.Status, err.Problem)
		return
	}

	sort.SliceStable(bids, func(i, j int) bool { return bids[i].Amount > bids[j].Amount })

	total := int64(len(bids))
	pageItems := pageSlice(bids, page)

	response := utils.NewPageResponse[model.Bid]().
		WithItems(pageItems).
		WithItemCount(total)
	if int64((page.Token+1)*page.Size) < total {
		response.WithNextPageToken(int64(page.Token + 1))
	}

	c.JSON(http.StatusOK, response.Build())
}

func (bh *bidHandler) getMyBids(c *gin.Context) {
	userId := c.Query("userId")
	if userId == "" {
		c.JSON(http.StatusBadRequest, reject.RequestParamsProblem())
		return
	}

	bids, err := bh.bidService.userGameBids(c.Request.Context(), c.Param("gameId"), userId)
	if err != nil {
		c.JSON(err.Problem.Status, err.Problem)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bids": bids})
}

type CancelBidRequest struct {
	UserId string `json:"userId" binding:"required"`
}

func (bh *bidHandler) cancelBid(c *gin.Context) {
	body := CancelBidRequest{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, reject.RequestValidationProblem())
		return
	}

	err := bh.bidService.cancelBid(c.Request.Context(), c.Param("gameId"), body.UserId, c.Param("bidId"))
	if err != nil {
		c.JSON(err.Problem.Status, err.Problem)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func pageSlice(bids []model.Bid, page utils.PageRequest) []model.Bid {
	if page.Offset >= len(bids) {
		return []model.Bid{}
	}
	end := page.Offset + page.Size
	if end > len(bids) {
		end = len(bids)
	}
	return bids[page.Offset:end]
}
