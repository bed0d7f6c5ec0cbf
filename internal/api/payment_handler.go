package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"aiResume/internal/access"
	"aiResume/internal/api/middleware"
	"aiResume/internal/catalog"
	"aiResume/internal/database"
	"aiResume/internal/payment"
)

// PaymentHandler 负责付费模板的收银台创建与支付回跳核销。
type PaymentHandler struct {
	db              *gorm.DB
	broker          *payment.Broker
	amountCents     int64
	currency        string
	frontendBaseURL string
}

// NewPaymentHandler 构造 PaymentHandler。
func NewPaymentHandler(db *gorm.DB, broker *payment.Broker, amountCents int64, currency, frontendBaseURL string) *PaymentHandler {
	return &PaymentHandler{
		db:              db,
		broker:          broker,
		amountCents:     amountCents,
		currency:        currency,
		frontendBaseURL: frontendBaseURL,
	}
}

type checkoutRequest struct {
	ResumeID uint   `json:"resume_id" binding:"required"`
	Template string `json:"template" binding:"required"`
}

// CreateCheckout 创建外部支付会话并返回跳转地址。
// 待支付意图在跳转前落库，用户中途走丢回来支付仍能核销到正确目标。
func (h *PaymentHandler) CreateCheckout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	if catalog.TierOf(req.Template) != catalog.TierPremium {
		BadRequest(c, "template does not require payment")
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	var resume database.Resume
	if err := h.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", req.ResumeID, userID).
		First(&resume).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "resume not found")
			return
		}
		Internal(c, "failed to query resume")
		return
	}

	session, err := h.broker.CreateSession(ctx, userKeyFor(userID), resume.ID, req.Template)
	if err != nil {
		logger.Error("create checkout session failed", slog.Any("error", err))
		Internal(c, "checkout unavailable")
		return
	}

	record := database.Payment{
		UserID:          userID,
		ResumeID:        resume.ID,
		Template:        req.Template,
		Provider:        "stripe",
		SessionID:       session.ID,
		Status:          database.PaymentStatusPending,
		Amount:          h.amountCents,
		Currency:        h.currency,
		ProviderPayload: datatypes.JSON(session.Raw),
	}
	if err := h.db.WithContext(ctx).Create(&record).Error; err != nil {
		// 会话已创建，落库失败只记日志，不挡住用户支付。
		logger.Error("persist payment record failed", slog.Any("error", err))
	}

	c.JSON(http.StatusOK, gin.H{"checkout_url": session.URL})
}

// CheckoutSuccess 处理支付成功回跳：核销待支付意图、点亮一次性下载标记，
// 并把审计行置为 completed。没有待支付意图时只引导回首页，绝不凭空授予下载资格。
func (h *PaymentHandler) CheckoutSuccess(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	intent, err := h.broker.RedeemSession(ctx, userKeyFor(userID))
	if err != nil {
		logger.Error("redeem payment session failed", slog.Any("error", err))
		Internal(c, "failed to redeem payment")
		return
	}

	if intent == nil {
		c.JSON(http.StatusOK, gin.H{"location": h.frontendBaseURL})
		return
	}

	h.completePaymentRecord(ctx, logger, userID, intent)

	downloadPath := fmt.Sprintf("/v1/resumes/%d/download?template=%s", intent.ResumeID, intent.Template)
	c.JSON(http.StatusOK, gin.H{
		"resume_id": intent.ResumeID,
		"template":  intent.Template,
		"location":  downloadPath,
	})
}

// completePaymentRecord 把核销目标对应的最新 pending 审计行置为 completed。
// 收银台创建时落库失败的会话在这里补一条完整行。核销已经生效，
// 审计落库失败只记日志，不能再挡用户。
func (h *PaymentHandler) completePaymentRecord(ctx context.Context, logger *slog.Logger, userID uint, intent *access.PendingIntent) {
	var record database.Payment
	err := h.db.WithContext(ctx).
		Where("user_id = ? AND resume_id = ? AND template = ? AND status = ?",
			userID, intent.ResumeID, intent.Template, database.PaymentStatusPending).
		Order("id DESC").
		First(&record).Error

	switch {
	case err == nil:
		if err := h.db.WithContext(ctx).Model(&record).
			Update("status", database.PaymentStatusCompleted).Error; err != nil {
			logger.Error("complete payment record failed", slog.Any("error", err))
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		fallback := database.Payment{
			UserID:   userID,
			ResumeID: intent.ResumeID,
			Template: intent.Template,
			Provider: "stripe",
			Status:   database.PaymentStatusCompleted,
			Amount:   h.amountCents,
			Currency: h.currency,
		}
		if err := h.db.WithContext(ctx).Create(&fallback).Error; err != nil {
			logger.Error("persist redeemed payment record failed", slog.Any("error", err))
		}
	default:
		logger.Error("query pending payment record failed", slog.Any("error", err))
	}
}
