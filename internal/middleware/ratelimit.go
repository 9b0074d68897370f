package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	limit "github.com/yangxikun/gin-limit-by-key"
	"golang.org/x/time/rate"
)

// gin-limit-by-key는 프로세스 전역 캐시에 limiter를 보관하므로 키에 용도를 붙임
const recordKeyPrefix = "record:"

// RecordRateLimit limits uploads per client IP. perMinute <= 0 disables it.
func RecordRateLimit(perMinute int) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return limit.NewRateLimiter(
		func(c *gin.Context) string {
			return recordKeyPrefix + c.ClientIP()
		},
		func(c *gin.Context) (*rate.Limiter, time.Duration) {
			return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute), time.Hour
		},
		func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "Too many recordings. Please wait a moment."})
		},
	)
}
