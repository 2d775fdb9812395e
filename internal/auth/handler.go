package auth

import (
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/store"
	"github.com/gin-gonic/gin"
)

const tokenEndpoint = "https://identitytoolkit.googleapis.com/v1/accounts:signInWithIdp"

type authHandler struct {
	store store.Store
}

func RegisterRoutes(rg *gin.RouterGroup, st store.Store) {
	handler := &authHandler{store: st}

	routes := rg.Group("/auth")
	routes.POST("/google", handler.getIdentityPlatformTokenFromGoogleIdToken)
	routes.POST("/apple", handler.getIdentityPlatformTokenFromAppleIdToken)
	routes.POST("/refresh", RefreshToken)
}
