package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"slaveloan-backend/config"
	"slaveloan-backend/internal/mw"
	"slaveloan-backend/internal/store"
)

// NewRouter creates and configures a new Gin router. The route table is built
// here explicitly; nothing registers itself as a side effect of import.
func NewRouter(s store.Store, d Dispatcher, webpushOptions *webpush.Options, cfg *config.ServerConfig) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, d, webpushOptions)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/loans", handler.GetLoans)
		api.GET("/loans/all", handler.GetAllLoans)
		api.GET("/loans/:loanid", handler.GetLoan)
		api.GET("/loans/:loanid/history", handler.GetLoanHistory)
		api.POST("/loans/new", handler.NewLoanFromAdmin)
		api.POST("/loans/request", handler.NewLoanRequest)

		// The slave-type table is static configuration, so the response is cached.
		api.GET("/machine/classes", caching, handler.GetMachineClasses)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
