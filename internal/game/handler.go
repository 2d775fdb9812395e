package game

import (
	"net/http"
	"time"

	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/middleware"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/model"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/reject"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/store"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/utils"
	"github.com/gin-gonic/gin"
)

type gameHandler struct {
	gameService gameService
}

func RegisterRoutes(rg *gin.RouterGroup, st store.Store) {
	handler := gameHandler{
		gameService: gameService{
			store: st,
			now:   time.Now,
		},
	}

	routes := rg.Group("/games")
	routes.GET("", middleware.VerifyAuthToken, handler.getGames)
	routes.GET("/:gameId", middleware.VerifyAuthToken, handler.getGame)
	routes.POST("/:gameId/join", middleware.VerifyAuthToken, handler.joinGame)
	routes.GET("/:gameId/participants", middleware.VerifyAuthToken, handler.getParticipants)
}

func (gh *gameHandler) getGames(c *gin.Context) {
	page, pageErr := utils.NewPageRequest(c)
	if pageErr != nil {
		c.JSON(pageErr.Problem.Status, pageErr.Problem)
		return
	}

	games, err := gh.gameService.getGames(c.Request.Context())
	if err != nil {
		c.JSON(err.Problem.Status, err.Problem)
		return
	}

	total := int64(len(games))
	start := page.Offset
	if start > len(games) {
		start = len(games)
	}
	end := start + page.Size
	if end > len(games) {
		end = len(games)
	}

	response := utils.NewPageResponse[model.Game]().
		WithItems(games[start:end]).
		WithItemCount(total)
	if int64((page.Token+1)*page.Size) < total {
		response.WithNextPageToken(int64(page.Token + 1))
	}

	c.JSON(http.StatusOK, response.Build())
}

func (gh *gameHandler) getGame(c *gin.Context) {
	game, err := gh.gameService.getGame(c.Request.Context(), c.Param("gameId"))
	if err != nil {
		c.JSON(err.Problem.Status, err.Problem)
		return
	}

	c.JSON(http.StatusOK, game)
}

type JoinGameRequest struct {
	UserId string `json:"userId" binding:"required"`
}

func (gh *gameHandler) joinGame(c *gin.Context) {
	body := JoinGameRequest{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, reject.RequestValidationProblem())
		return
	}

	participant, err := gh.gameService.joinGame(c.Request.Context(), c.Param("gameId"), body.UserId)
	if err != nil {
		c.JSON(err.Problem.Status, err.Problem)
		return
	}

	c.JSON(http.StatusOK, participant)
}

func (gh *gameHandler) getParticipants(c *gin.Context) {
	participants, err := gh.gameService.getParticipants(c.Request.Context(), c.Param("gameId"))
	if err != nil {
		c.JSON(err.Problem.Status, err.Problem)
		return
	}

	c.JSON(http.StatusOK, gin.H{"participants": participants})
}
