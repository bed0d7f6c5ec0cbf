package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"aiResume/internal/access"
	"aiResume/internal/database"
	"aiResume/internal/render"
)

type memorySessionStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{data: map[string]string{}}
}

func (s *memorySessionStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memorySessionStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *memorySessionStore) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&database.User{}, &database.Profile{}, &database.Resume{}, &database.Payment{}, &database.Asset{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestPipeline(t *testing.T) *render.Pipeline {
	t.Helper()
	pipeline, err := render.NewPipeline(func(_ context.Context, html string) ([]byte, error) {
		return []byte("%PDF-" + html), nil
	})
	if err != nil {
		t.Fatalf("build pipeline: %v", err)
	}
	return pipeline
}

type resumeTestEnv struct {
	db       *gorm.DB
	handler  *ResumeHandler
	sessions *access.Sessions
}

func newResumeTestEnv(t *testing.T) *resumeTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	sessions := access.NewSessions(newMemorySessionStore(), time.Hour)
	gate := access.NewGate(sessions)
	handler := NewResumeHandler(db, gate, sessions, newTestPipeline(t), nil, nil)

	return &resumeTestEnv{db: db, handler: handler, sessions: sessions}
}

func (env *resumeTestEnv) seedResume(t *testing.T, userID uint) database.Resume {
	t.Helper()
	resume := database.Resume{
		UserID:     userID,
		FullName:   "Ada Lovelace",
		Email:      "ada@example.com",
		Summary:    "<p>Analytical engine programmer.</p>",
		Experience: "<ul><li>Wrote the first algorithm.</li></ul>",
		Template:   database.DefaultTemplate,
		Color:      database.DefaultColor,
		Status:     "draft",
	}
	if err := env.db.Create(&resume).Error; err != nil {
		t.Fatalf("seed resume: %v", err)
	}
	return resume
}

func previewRequest(userID uint, resumeID, query string) (*httptest.ResponseRecorder, *gin.Context) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/resumes/"+resumeID+"/preview"+query, nil)
	c.Params = gin.Params{{Key: "id", Value: resumeID}}
	c.Set("userID", userID)
	return w, c
}

func TestPreviewResume_FreeTemplatePersistsChoice(t *testing.T) {
	env := newResumeTestEnv(t)
	resume := env.seedResume(t, 1)

	w, c := previewRequest(1, "1", "?template=professional")
	env.handler.PreviewResume(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if !strings.Contains(body, "Ada Lovelace") {
		t.Fatalf("preview missing name: %s", body)
	}
	if !strings.Contains(body, "<p>Analytical engine programmer.</p>") {
		t.Fatalf("rich text should pass through unescaped")
	}

	var stored database.Resume
	if err := env.db.First(&stored, resume.ID).Error; err != nil {
		t.Fatalf("reload resume: %v", err)
	}
	if stored.Template != "professional" {
		t.Fatalf("expected stored template professional, got %q", stored.Template)
	}
}

func TestPreviewResume_PremiumUnpaidReturns402WithoutSideEffects(t *testing.T) {
	env := newResumeTestEnv(t)
	resume := env.seedResume(t, 1)

	w, c := previewRequest(1, "1", "?template=creative")
	env.handler.PreviewResume(c)

	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402 got %d body=%s", w.Code, w.Body.String())
	}

	var stored database.Resume
	if err := env.db.First(&stored, resume.ID).Error; err != nil {
		t.Fatalf("reload resume: %v", err)
	}
	if stored.Template != database.DefaultTemplate {
		t.Fatalf("unpaid preview must not persist template, got %q", stored.Template)
	}

	intent, err := env.sessions.TakePendingIntent(context.Background(), "1")
	if err != nil {
		t.Fatalf("take intent: %v", err)
	}
	if intent == nil {
		t.Fatal("expected pending intent to be recorded")
	}
	if intent.ResumeID != resume.ID || intent.Template != "creative" {
		t.Fatalf("unexpected intent: %+v", intent)
	}
}

func TestPreviewResume_PaidFlagUnlocksExactlyOnce(t *testing.T) {
	env := newResumeTestEnv(t)
	resume := env.seedResume(t, 1)

	if err := env.sessions.MarkPaid(context.Background(), "1"); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	w, c := previewRequest(1, "1", "?template=creative")
	env.handler.PreviewResume(c)
	if w.Code != http.StatusOK {
		t.Fatalf("paid preview expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	var stored database.Resume
	if err := env.db.First(&stored, resume.ID).Error; err != nil {
		t.Fatalf("reload resume: %v", err)
	}
	if stored.Template != "creative" {
		t.Fatalf("paid preview should persist template, got %q", stored.Template)
	}

	// 一次性标记已被消费：存储的付费模板再次请求时回到待支付。
	// 请求参数为空，402 载荷必须回显解析后的模板标识供前端发起 checkout。
	w2, c2 := previewRequest(1, "1", "")
	env.handler.PreviewResume(c2)
	if w2.Code != http.StatusPaymentRequired {
		t.Fatalf("second premium preview expected 402 got %d", w2.Code)
	}
	if !strings.Contains(w2.Body.String(), `"template":"creative"`) {
		t.Fatalf("402 payload should carry the effective template, got %s", w2.Body.String())
	}
}

func TestPreviewResume_InvalidTemplateID(t *testing.T) {
	env := newResumeTestEnv(t)
	env.seedResume(t, 1)

	w, c := previewRequest(1, "1", "?template=Creative")
	env.handler.PreviewResume(c)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}

func TestPreviewResume_UnknownTemplateFallsBack(t *testing.T) {
	env := newResumeTestEnv(t)
	env.seedResume(t, 1)

	w, c := previewRequest(1, "1", "?template=does-not-exist")
	env.handler.PreviewResume(c)
	if w.Code != http.StatusOK {
		t.Fatalf("unknown template should degrade to default, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestGetResume_OtherUsersResumeIs404(t *testing.T) {
	env := newResumeTestEnv(t)
	env.seedResume(t, 2)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/resumes/1", nil)
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	c.Set("userID", uint(1))

	env.handler.GetResume(c)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", w.Code)
	}
}

func TestDownloadResume_FreeTemplateReturnsAttachment(t *testing.T) {
	env := newResumeTestEnv(t)
	resume := env.seedResume(t, 1)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/resumes/1/download", nil)
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	c.Set("userID", uint(1))

	env.handler.DownloadResume(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("expected pdf content type, got %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Fatalf("expected attachment disposition, got %q", cd)
	}
	if !strings.HasPrefix(w.Body.String(), "%PDF-") {
		t.Fatal("expected pdf payload")
	}

	var stored database.Resume
	if err := env.db.First(&stored, resume.ID).Error; err != nil {
		t.Fatalf("reload resume: %v", err)
	}
	if stored.Status != "completed" {
		t.Fatalf("expected status completed, got %q", stored.Status)
	}
}

func TestUpdateResumeFields_Whitelist(t *testing.T) {
	env := newResumeTestEnv(t)
	resume := env.seedResume(t, 1)

	body := strings.NewReader(`{"full_name":"Grace Hopper","skills":"<ul><li>COBOL</li></ul>"}`)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPatch, "/v1/resumes/1", body)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	c.Set("userID", uint(1))

	env.handler.UpdateResumeFields(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	var stored database.Resume
	if err := env.db.First(&stored, resume.ID).Error; err != nil {
		t.Fatalf("reload resume: %v", err)
	}
	if stored.FullName != "Grace Hopper" {
		t.Fatalf("full name not updated: %q", stored.FullName)
	}
	if stored.Skills != "<ul><li>COBOL</li></ul>" {
		t.Fatalf("skills not updated: %q", stored.Skills)
	}
	if stored.Summary != resume.Summary {
		t.Fatalf("summary should be untouched")
	}
}

func TestGetLatestResume_CreatesDraftWhenEmpty(t *testing.T) {
	env := newResumeTestEnv(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/resumes/latest", nil)
	c.Set("userID", uint(7))

	env.handler.GetLatestResume(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	var count int64
	if err := env.db.Model(&database.Resume{}).Where("user_id = ?", 7).Count(&count).Error; err != nil {
		t.Fatalf("count resumes: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one draft created, got %d", count)
	}
}
