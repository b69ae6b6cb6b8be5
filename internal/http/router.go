// README: HTTP router registration.
package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"convoyage/internal/http/handlers"
	"convoyage/internal/http/middleware"
	"convoyage/internal/metrics"
)

func NewRouter(deps ServerDeps, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(logger), middleware.Logging(logger))

	r.GET("/health", health(deps.Checks))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")

	if deps.Quotes != nil {
		quoteHandler := handlers.NewQuoteHandler(deps.Quotes)
		api.POST("/quotes", quoteHandler.Create)
		api.GET("/quotes/:id", quoteHandler.Get)
		api.PATCH("/quotes/:id", quoteHandler.Update)
		api.POST("/quotes/:id/distance", quoteHandler.Distance)
		api.POST("/quotes/:id/reprice", quoteHandler.Reprice)
		api.POST("/quotes/:id/submit",
			middleware.RateLimit(deps.Redis, "submit", deps.SubmitLimit, deps.SubmitWindow, logger),
			quoteHandler.Submit,
		)
	}

	addressHandler := handlers.NewAddressHandler(deps.Places)
	api.GET("/addresses/suggest", addressHandler.Suggest)

	if deps.Pricing != nil {
		pricingHandler := handlers.NewPricingHandler(deps.Pricing)
		api.GET("/pricing/quote", pricingHandler.Quote)

		if deps.Verifier != nil {
			admin := api.Group("/admin", middleware.Auth(deps.Verifier), middleware.RequireRole(middleware.RoleAdmin))
			admin.GET("/rates", pricingHandler.ListRates)
			admin.POST("/rates", pricingHandler.CreateRate)
			admin.PUT("/rates/:id", pricingHandler.UpdateRate)
			admin.DELETE("/rates/:id", pricingHandler.DeleteRate)

			if deps.Requests != nil {
				requestHandler := handlers.NewRequestHandler(deps.Requests)
				admin.GET("/requests", requestHandler.List)
				admin.GET("/requests/export.xlsx", requestHandler.XLSX)
				admin.GET("/requests/:id/pdf", requestHandler.PDF)
			}
		}
	}

	return r
}
