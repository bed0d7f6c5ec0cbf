package payment

import (
	"context"
	"errors"
	"fmt"

	"aiResume/internal/access"
)

// ErrProviderUnavailable：外部支付网关调用失败。不重试，直接上抛给调用方。
var ErrProviderUnavailable = errors.New("payment: provider unavailable")

// CheckoutProvider 抽象外部收银台提供方。
type CheckoutProvider interface {
	CreateCheckout(ctx context.Context, amountCents int64, currency, productName, successURL, cancelURL string) (*CheckoutSession, error)
}

// Broker 负责创建/核销外部支付会话，并维护会话内的待支付意图。
type Broker struct {
	provider   CheckoutProvider
	sessions   *access.Sessions
	amount     int64
	currency   string
	successURL string
	cancelURL  string
}

// NewBroker 构造 Broker。
func NewBroker(provider CheckoutProvider, sessions *access.Sessions, amountCents int64, currency, successURL, cancelURL string) *Broker {
	return &Broker{
		provider:   provider,
		sessions:   sessions,
		amount:     amountCents,
		currency:   currency,
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

// CreateSession 先把 {resume_id, template} 写入待支付意图，再创建外部会话。
// 意图先落、跳转后返——即使用户中途放弃，回头支付成功仍能核销到正确的下载目标。
func (b *Broker) CreateSession(ctx context.Context, userKey string, resumeID uint, templateID string) (*CheckoutSession, error) {
	intent := access.PendingIntent{ResumeID: resumeID, Template: templateID}
	if err := b.sessions.SetPendingIntent(ctx, userKey, intent); err != nil {
		return nil, fmt.Errorf("record pending intent: %w", err)
	}

	productName := fmt.Sprintf("Premium resume template: %s", templateID)
	session, err := b.provider.CreateCheckout(ctx, b.amount, b.currency, productName, b.successURL, b.cancelURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrProviderUnavailable, err)
	}
	return session, nil
}

// RedeemSession 读取并清除待支付意图，同时点亮一次性已支付标记。
// 无意图时返回 nil——调用方应引导到默认落地页，且不授予任何支付标记
// （否则仅访问成功回跳地址就能白拿一次付费下载）。
func (b *Broker) RedeemSession(ctx context.Context, userKey string) (*access.PendingIntent, error) {
	intent, err := b.sessions.TakePendingIntent(ctx, userKey)
	if err != nil {
		return nil, fmt.Errorf("take pending intent: %w", err)
	}
	if intent == nil {
		return nil, nil
	}

	if err := b.sessions.MarkPaid(ctx, userKey); err != nil {
		return nil, fmt.Errorf("mark session paid: %w", err)
	}
	return intent, nil
}
