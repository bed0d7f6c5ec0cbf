package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"aiResume/internal/access"
	"aiResume/internal/database"
	"aiResume/internal/payment"
)

type fakeCheckoutProvider struct {
	session *payment.CheckoutSession
	err     error
}

func (f *fakeCheckoutProvider) CreateCheckout(context.Context, int64, string, string, string, string) (*payment.CheckoutSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func newPaymentTestEnv(t *testing.T, provider *fakeCheckoutProvider) (*PaymentHandler, *access.Sessions, *resumeTestEnv) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := newResumeTestEnv(t)
	broker := payment.NewBroker(provider, env.sessions, 499, "usd", "https://app.example.com/success", "https://app.example.com/cancel")
	handler := NewPaymentHandler(env.db, broker, 499, "usd", "https://app.example.com")
	return handler, env.sessions, env
}

func TestCreateCheckout_ReturnsRedirectAndPersistsPayment(t *testing.T) {
	provider := &fakeCheckoutProvider{session: &payment.CheckoutSession{
		ID:  "cs_test_123",
		URL: "https://checkout.stripe.com/pay/cs_test_123",
		Raw: json.RawMessage(`{"id":"cs_test_123"}`),
	}}
	handler, _, env := newPaymentTestEnv(t, provider)
	resume := env.seedResume(t, 1)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/payments/checkout",
		strings.NewReader(`{"resume_id":1,"template":"creative"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set("userID", uint(1))

	handler.CreateCheckout(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "https://checkout.stripe.com/pay/cs_test_123") {
		t.Fatalf("missing checkout url: %s", w.Body.String())
	}

	var record database.Payment
	if err := env.db.Where("session_id = ?", "cs_test_123").First(&record).Error; err != nil {
		t.Fatalf("payment record not persisted: %v", err)
	}
	if record.ResumeID != resume.ID || record.Template != "creative" || record.Amount != 499 {
		t.Fatalf("unexpected payment record: %+v", record)
	}
	if record.Status != database.PaymentStatusPending {
		t.Fatalf("checkout record should start pending, got %q", record.Status)
	}
}

func TestCreateCheckout_FreeTemplateRejected(t *testing.T) {
	handler, _, env := newPaymentTestEnv(t, &fakeCheckoutProvider{})
	env.seedResume(t, 1)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/payments/checkout",
		strings.NewReader(`{"resume_id":1,"template":"modern"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set("userID", uint(1))

	handler.CreateCheckout(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}

func TestCheckoutSuccess_RedeemsIntentAndSetsPaidFlag(t *testing.T) {
	handler, sessions, env := newPaymentTestEnv(t, &fakeCheckoutProvider{})
	resume := env.seedResume(t, 1)

	ctx := context.Background()
	if err := sessions.SetPendingIntent(ctx, "1", access.PendingIntent{ResumeID: resume.ID, Template: "creative"}); err != nil {
		t.Fatalf("seed intent: %v", err)
	}
	pending := database.Payment{
		UserID:    1,
		ResumeID:  resume.ID,
		Template:  "creative",
		Provider:  "stripe",
		SessionID: "cs_test_abc",
		Status:    database.PaymentStatusPending,
		Amount:    499,
		Currency:  "usd",
	}
	if err := env.db.Create(&pending).Error; err != nil {
		t.Fatalf("seed pending payment: %v", err)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/payments/success", nil)
	c.Set("userID", uint(1))

	handler.CheckoutSuccess(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "/v1/resumes/1/download?template=creative") {
		t.Fatalf("expected download location, got %s", w.Body.String())
	}

	paid, err := sessions.ConsumePaid(ctx, "1")
	if err != nil {
		t.Fatalf("consume paid: %v", err)
	}
	if !paid {
		t.Fatal("expected paid flag to be set")
	}

	var record database.Payment
	if err := env.db.First(&record, pending.ID).Error; err != nil {
		t.Fatalf("reload payment: %v", err)
	}
	if record.Status != database.PaymentStatusCompleted {
		t.Fatalf("redeem should complete the audit row, got %q", record.Status)
	}
}

func TestCheckoutSuccess_WritesAuditRowWhenPendingRowMissing(t *testing.T) {
	handler, sessions, env := newPaymentTestEnv(t, &fakeCheckoutProvider{})
	resume := env.seedResume(t, 1)

	ctx := context.Background()
	if err := sessions.SetPendingIntent(ctx, "1", access.PendingIntent{ResumeID: resume.ID, Template: "executive"}); err != nil {
		t.Fatalf("seed intent: %v", err)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/payments/success", nil)
	c.Set("userID", uint(1))

	handler.CheckoutSuccess(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	var record database.Payment
	if err := env.db.Where("user_id = ? AND resume_id = ?", 1, resume.ID).First(&record).Error; err != nil {
		t.Fatalf("redeem must leave an audit row: %v", err)
	}
	if record.Status != database.PaymentStatusCompleted || record.Template != "executive" {
		t.Fatalf("unexpected audit row: %+v", record)
	}
}

func TestCheckoutSuccess_NoIntentGrantsNothing(t *testing.T) {
	handler, sessions, env := newPaymentTestEnv(t, &fakeCheckoutProvider{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/payments/success", nil)
	c.Set("userID", uint(1))

	handler.CheckoutSuccess(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "https://app.example.com") {
		t.Fatalf("expected frontend landing, got %s", w.Body.String())
	}

	paid, err := sessions.ConsumePaid(context.Background(), "1")
	if err != nil {
		t.Fatalf("consume paid: %v", err)
	}
	if paid {
		t.Fatal("success without intent must not grant a paid flag")
	}

	var count int64
	if err := env.db.Model(&database.Payment{}).Count(&count).Error; err != nil {
		t.Fatalf("count payments: %v", err)
	}
	if count != 0 {
		t.Fatalf("success without intent must not write audit rows, got %d", count)
	}
}
