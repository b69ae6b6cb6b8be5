// README: API gateway; builds the gin engine and delegates to module services.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"convoyage/internal/http/handlers"
	"convoyage/internal/infra"
	"convoyage/internal/logging"
	"convoyage/internal/modules/pricing"
	"convoyage/internal/modules/quote"
)

// ReadinessCheck reports whether a dependency is usable.
type ReadinessCheck func(ctx context.Context) error

type ServerDeps struct {
	Quotes   *quote.Service
	Pricing  *pricing.Service
	Places   handlers.AddressSuggester
	Requests handlers.RequestReader
	Verifier infra.TokenVerifier
	Redis    *redis.Client
	Logger   *slog.Logger

	SubmitLimit  int
	SubmitWindow time.Duration
	Checks       map[string]ReadinessCheck
}

type Server struct {
	deps   ServerDeps
	logger *slog.Logger
}

func NewServer(deps ServerDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{deps: deps, logger: logger}
}

func (s *Server) Routes() http.Handler {
	return NewRouter(s.deps, s.logger)
}

// health answers 200 when every readiness check passes, 503 otherwise.
func health(checks map[string]ReadinessCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "checks": results})
	}
}
