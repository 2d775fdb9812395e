package slipstream

import (
	"net/http"
	"strings"
	"time"

	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/activity"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/middleware"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/pubsub"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/reject"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/store"
	"github.com/gin-gonic/gin"
)

type slipstreamHandler struct {
	slipstreamService slipstreamService
}

func RegisterRoutes(rg *gin.RouterGroup, st store.Store) {
	handler := slipstreamHandler{
		slipstreamService: slipstreamService{
			store:    st,
			activity: activity.NewLogger(st),
			publish:  pubsub.Publish,
			now:      time.Now,
		},
	}

	routes := rg.Group("/games/:gameId/slipstream")
	routes.POST("/calculate-results", middleware.VerifyAuthToken, handler.calculateResults)
	routes.POST("/picks", middleware.VerifyAuthToken, handler.savePick)
	routes.GET("/picks", middleware.VerifyAuthToken, handler.getPicks)
}

type StageResultRow struct {
	Place          int    `json:"place"`
	RiderId        string `json:"riderId"`
	NameID         string `json:"nameID"`
	RiderName      string `json:"riderName"`
	TimeDifference string `json:"timeDifference"`
	Status         string `json:"status"` // DNF, DNS or DSQ; empty for finishers
}

type CalculateResultsRequest struct {
	RaceSlug     string           `json:"raceSlug" binding:"required"`
	StageResults []StageResultRow `json:"stageResults" binding:"required"`
}

func (sh *slipstreamHandler) calculateResults(c *gin.Context) {
	body := CalculateResultsRequest{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, reject.BodyParseProblem())
		return
	}

	results := make([]StageResult, 0, len(body.StageResults))
	for _, row := range body.StageResults {
		riderId := row.RiderId
		if riderId == "" {
			riderId = row.NameID
		}
		if riderId == "" {
			c.JSON(http.StatusBadRequest, reject.RequestValidationProblem())
			return
		}

		result := StageResult{
			Place:     row.Place,
			RiderId:   riderId,
			RiderName: row.RiderName,
			Marker:    strings.ToUpper(strings.TrimSpace(row.Status)),
		}
		if result.Marker == "" {
			gap, err := ParseTimeGap(row.TimeDifference)
			if err != nil {
				c.JSON(http.StatusBadRequest, reject.NewProblem().
					WithTitle("Malformed time difference").
					WithStatus(http.StatusBadRequest).
					WithCode("error.slipstream.malformed-time-difference").
					WithDetail(err.Error()).
					Build())
				return
			}
			result.GapSeconds = gap
		}
		results = append(results, result)
	}

	gameId := c.Param("gameId")
	outcome, err := sh.slipstreamService.calculateResults(c.Request.Context(), gameId, body.RaceSlug, results)
	if err != nil {
		c.JSON(err.Problem.Status, err.Problem)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"gameId":      gameId,
		"raceSlug":    body.RaceSlug,
		"processedAt": outcome.ProcessedAt.UTC().Format(time.RFC3339),
		"summary":     outcome.Summary,
		"results":     outcome.Results,
	})
}

type SavePickRequest struct {
	UserId    string `json:"userId" binding:"required"`
	RaceSlug  string `json:"raceSlug" binding:"required"`
	RiderId   string `json:"riderId" binding:"required"`
	RiderName string `json:"riderName"`
}

func (sh *slipstreamHandler) savePick(c *gin.Context) {
	body := SavePickRequest{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, reject.RequestValidationProblem())
		return
	}

	pick, err := sh.slipstreamService.savePick(c.Request.Context(), savePickCommand{
		GameId:    c.Param("gameId"),
		UserId:    body.UserId,
		RaceSlug:  body.RaceSlug,
		RiderId:   body.RiderId,
		RiderName: body.RiderName,
	})
	if err != nil {
		c.JSON(err.Problem.Status, err.Problem)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "pick": pick})
}

func (sh *slipstreamHandler) getPicks(c *gin.Context) {
	picks, err := sh.slipstreamService.listPicks(
		c.Request.Context(),
		c.Param("gameId"),
		c.Query("raceSlug"),
		c.Query("userId"))
	if err != nil {
		c.JSON(err.Problem.Status, err.Problem)
		return
	}

	c.JSON(http.StatusOK, gin.H{"picks": picks})
}
