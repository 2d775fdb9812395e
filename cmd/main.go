package main

import (
	"net/http"
	"time"

	"github.com/Jasperhuting/oracle-games-backend/internal/auth"
	"github.com/Jasperhuting/oracle-games-backend/internal/bid"
	"github.com/Jasperhuting/oracle-games-backend/internal/game"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/middleware"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/pubsub"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/store"
	"github.com/Jasperhuting/oracle-games-backend/internal/profile"
	"github.com/Jasperhuting/oracle-games-backend/internal/slipstream"
	"github.com/Jasperhuting/oracle-games-backend/internal/ws"
	"github.com/Jasperhuting/oracle-games-backend/pkg/firebase"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

func main() {
	setupViper()
	setupZerolog()
	pubsub.InitPubSub()
	firebase.InitFirebaseSdk()

	defer func() { pubsub.CloseClient() }()

	st := store.NewFirestore(firebase.FirestoreClient())
	apiRouter := setupApiRouter(st)

	port := viper.Get("PORT").(string)
	server := &http.Server{
		Addr:         port,
		Handler:      apiRouter,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	server.ListenAndServe()
}

func setupApiRouter(st store.Store) *gin.Engine {
	apiRouter := gin.Default()
	routerGroup := apiRouter.Group("/oracle-games-api")

	middleware.RegisterGlobalMiddleware(apiRouter)

	ws.RegisterRoutes(routerGroup)
	auth.RegisterRoutes(routerGroup, st)
	profile.RegisterRoutes(routerGroup, st)
	game.RegisterRoutes(routerGroup, st)
	bid.RegisterRoutesAndSubscriptions(routerGroup, st)
	slipstream.RegisterRoutes(routerGroup, st)

	return apiRouter
}

func setupViper() {
	viper.AutomaticEnv()
	viper.SetConfigFile("./.env")
}

func setupZerolog() {
	zerolog.LevelFieldName = "severity"
	zerolog.TimestampFieldName = "time"
	zerolog.TimeFieldFormat = time.RFC3339Nano
}
