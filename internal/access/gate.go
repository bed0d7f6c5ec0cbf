package access

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"aiResume/internal/catalog"
)

// State 表示一次预览/下载请求在授权状态机中的落点。
type State string

const (
	// StateAllowed：允许渲染。免费模板直接到达；
	// 付费模板在消费掉一次性已支付标记后到达。
	StateAllowed State = "allowed"
	// StatePendingPayment：付费模板且未支付，已记录待支付意图，
	// 调用方应引导用户跳转收银台。本次请求到此为止。
	StatePendingPayment State = "pending_payment"
	// StateDenied：仅在模板标识语法非法时出现（目录对未知标识是兜底而非拒绝）。
	StateDenied State = "denied"
)

// Decision 是 Gate 的判定结果。
type Decision struct {
	State       State
	RendererKey string
	Tier        catalog.Tier
}

// Gate 依据模板层级与会话支付状态判定是否放行渲染。
type Gate struct {
	sessions *Sessions
}

// NewGate 构造 Gate。
func NewGate(sessions *Sessions) *Gate {
	return &Gate{sessions: sessions}
}

// Authorize 执行状态机迁移：
//
//	Requested --(免费)--------------------------> Allowed
//	Requested --(付费, 未支付)------------------> PendingPayment（记录意图）
//	Requested --(付费, 已支付)------------------> Allowed（消费一次性标记）
//
// 付费拦截发生在任何副作用之前，因此未支付的预览不会改动简历的存储模板。
func (g *Gate) Authorize(ctx context.Context, userKey string, resumeID uint, templateID string) (Decision, error) {
	if !isValidTemplateID(templateID) {
		return Decision{State: StateDenied}, nil
	}

	rendererKey := catalog.Resolve(templateID)
	tier := catalog.TierOf(templateID)

	if tier != catalog.TierPremium {
		return Decision{State: StateAllowed, RendererKey: rendererKey, Tier: tier}, nil
	}

	paid, err := g.sessions.ConsumePaid(ctx, userKey)
	if err != nil {
		return Decision{}, fmt.Errorf("check paid flag: %w", err)
	}
	if paid {
		return Decision{State: StateAllowed, RendererKey: rendererKey, Tier: tier}, nil
	}

	intent := PendingIntent{ResumeID: resumeID, Template: templateID}
	if err := g.sessions.SetPendingIntent(ctx, userKey, intent); err != nil {
		return Decision{}, fmt.Errorf("record pending intent: %w", err)
	}
	return Decision{State: StatePendingPayment, RendererKey: rendererKey, Tier: tier}, nil
}

// isValidTemplateID 校验标识的语法合法性。
// 空串合法（表示沿用简历已存储的模板），未知但格式正常的标识也合法——
// 那是目录兜底的职责，不是拒绝的理由。
func isValidTemplateID(id string) bool {
	if id == "" {
		return true
	}
	if len(id) > 50 || !utf8.ValidString(id) {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return !strings.HasPrefix(id, "-")
}
