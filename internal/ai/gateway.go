package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"aiResume/internal/ratelimit"
)

// 调用方依据哨兵错误映射 HTTP 状态：429 / 500。
var (
	ErrRateLimited         = errors.New("ai: rate limited")
	ErrUpstreamUnavailable = errors.New("ai: upstream unavailable")
)

// CompletionClient 抽象外部补全提供方。
type CompletionClient interface {
	Complete(ctx context.Context, systemPrompt, userText string) (string, error)
}

// Gateway 包装外部补全调用：固定的按字段指令表 + 每用户限流。
//
// 策略说明（与测试一致）：
//   - 空文本不拒绝，替换为通用占位请求（沿用线上行为）；
//   - 每次调用无论成败都消费一个限流名额，不做退还；
//   - 上游失败立即上抛为 ErrUpstreamUnavailable，不重试。
type Gateway struct {
	client  CompletionClient
	limiter *ratelimit.Limiter
	logger  *slog.Logger
	limit   int
	window  time.Duration
}

// NewGateway 构造 Gateway。
func NewGateway(client CompletionClient, limiter *ratelimit.Limiter, logger *slog.Logger, limit int, window time.Duration) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		client:  client,
		limiter: limiter,
		logger:  logger,
		limit:   limit,
		window:  window,
	}
}

// Improve 润色一段简历文本。
// userKey 标识限流主体（登录用户 ID 或匿名来源），field 选择系统指令。
func (g *Gateway) Improve(ctx context.Context, userKey, rawText string, field FieldKind) (string, error) {
	rateKey := "ai:limit:" + userKey

	allowed, err := g.limiter.Allow(ctx, rateKey, g.limit, g.window)
	if err != nil {
		// 限流存储故障时放行而不是拒绝服务，与登录限流的容错策略一致。
		g.logger.Warn("rate limiter unavailable, allowing request", slog.Any("error", err))
		allowed = true
	}
	if !allowed {
		return "", ErrRateLimited
	}

	systemPrompt := systemPromptFor(field)
	userText := strings.TrimSpace(rawText)
	if userText == "" {
		userText = placeholderPromptFor(field)
	}

	result, err := g.client.Complete(ctx, systemPrompt, userText)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUpstreamUnavailable, err)
	}
	return result, nil
}
