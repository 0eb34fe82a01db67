package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimiterConfig bounds how often a client may hit the probe endpoints.
type RateLimiterConfig struct {
	Max        int
	Expiration time.Duration
	Message    string
}

// DefaultRateLimiterConfig allows 120 requests per minute per client IP.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Max:        120,
		Expiration: time.Minute,
		Message:    "Too many requests. Please try again later.",
	}
}

// NewRateLimiter creates a new rate limiter middleware with the provided configuration
func NewRateLimiter(config RateLimiterConfig) fiber.Handler {
	def := DefaultRateLimiterConfig()
	if config.Max <= 0 {
		config.Max = def.Max
	}
	if config.Expiration <= 0 {
		config.Expiration = def.Expiration
	}
	if config.Message == "" {
		config.Message = def.Message
	}

	return limiter.New(limiter.Config{
		Max:          config.Max,
		Expiration:   config.Expiration,
		KeyGenerator: defaultKeyGenerator,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Rate limit exceeded",
				"message":     config.Message,
				"retry_after": config.Expiration.Seconds(),
			})
		},
	})
}

func defaultKeyGenerator(c *fiber.Ctx) string {
	return c.IP()
}
