package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

func CORS() gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowHeaders = append(config.AllowHeaders, "Authorization")

	if origins, ok := viper.Get("CORS_ALLOWED_ORIGINS").(string); ok && origins != "" {
		config.AllowOrigins = []string{origins}
	} else {
		config.AllowAllOrigins = true
	}

	return cors.New(config)
}
