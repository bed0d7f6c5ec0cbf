package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"aiResume/internal/ai"
	"aiResume/internal/api/middleware"
	"aiResume/internal/metrics"
)

// AIHandler 暴露简历文本润色接口。
type AIHandler struct {
	gateway *ai.Gateway
}

// NewAIHandler 构造 AIHandler。
func NewAIHandler(gateway *ai.Gateway) *AIHandler {
	return &AIHandler{gateway: gateway}
}

type improveRequest struct {
	Text  string `json:"text"`
	Field string `json:"field"`
}

// ImproveText 润色一段简历文本。登录与匿名用户都可调用，
// 限流主体分别是用户 ID 和 IP+来源页组合。
func (h *AIHandler) ImproveText(c *gin.Context) {
	var req improveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body")
		return
	}

	field := ai.NormalizeField(req.Field)
	logger := middleware.LoggerFromContext(c)

	result, err := h.gateway.Improve(c.Request.Context(), h.userKey(c), req.Text, field)
	if err != nil {
		switch {
		case errors.Is(err, ai.ErrRateLimited):
			metrics.ObserveAIImprove(string(field), "rate_limited")
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded, try again later"})
		default:
			metrics.ObserveAIImprove(string(field), "upstream_error")
			logger.Error("improve text failed", slog.Any("error", err))
			Internal(c, "text improvement unavailable")
		}
		return
	}

	metrics.ObserveAIImprove(string(field), "ok")
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// userKey 返回限流主体标识。登录用户按 用户ID+来源页 分配配额，
// 匿名请求退化为 IP+来源页，降低同一出口 IP 背后多个用户互相挤兑限额的概率。
func (h *AIHandler) userKey(c *gin.Context) string {
	referer := c.Request.Referer()
	if len(referer) > 50 {
		referer = referer[:50]
	}
	if userID, ok := userIDFromContext(c); ok {
		return userKeyFor(userID) + ":" + referer
	}
	return "anon:" + c.ClientIP() + ":" + referer
}
