package profile

import (
	"net/http"
	"time"

	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/middleware"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/reject"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/store"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/utils"
	"github.com/gin-gonic/gin"
)

type profileHandler struct {
	profileService *ProfileService
}

func RegisterRoutes(rg *gin.RouterGroup, st store.Store) {
	handler := profileHandler{
		profileService: &ProfileService{Store: st, Now: time.Now},
	}

	routes := rg.Group("/profile")
	routes.GET("", middleware.VerifyAuthToken, handler.getProfile)
}

func (ph *profileHandler) getProfile(c *gin.Context) {
	email := utils.GetUserEmail(c)

	profile, err := ph.profileService.FindByEmail(c.Request.Context(), email)
	if err != nil {
		c.JSON(err.Problem.Status, err.Problem)
		return
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, reject.NotFoundProblem("Profile not found"))
		return
	}

	c.JSON(http.StatusOK, profile)
}
