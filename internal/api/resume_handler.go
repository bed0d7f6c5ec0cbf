package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"aiResume/internal/access"
	"aiResume/internal/api/middleware"
	"aiResume/internal/catalog"
	"aiResume/internal/database"
	"aiResume/internal/render"
	"aiResume/internal/storage"
	"aiResume/internal/tasks"
)

// ResumeHandler 负责处理与简历相关的 API 请求。
type ResumeHandler struct {
	db          *gorm.DB
	gate        *access.Gate
	sessions    *access.Sessions
	pipeline    *render.Pipeline
	asynqClient *asynq.Client
	storage     *storage.Client
}

// NewResumeHandler 构造 ResumeHandler。
func NewResumeHandler(db *gorm.DB, gate *access.Gate, sessions *access.Sessions, pipeline *render.Pipeline, asynqClient *asynq.Client, storageClient *storage.Client) *ResumeHandler {
	return &ResumeHandler{
		db:          db,
		gate:        gate,
		sessions:    sessions,
		pipeline:    pipeline,
		asynqClient: asynqClient,
		storage:     storageClient,
	}
}

var errInvalidResumeID = errors.New("invalid resume id")

type resumeFieldsRequest struct {
	FullName   *string `json:"full_name"`
	Email      *string `json:"email" binding:"omitempty,email"`
	Phone      *string `json:"phone"`
	Summary    *string `json:"summary"`
	Skills     *string `json:"skills"`
	Experience *string `json:"experience"`
	Education  *string `json:"education"`
	WorkLink   *string `json:"work_link"`
	Color      *string `json:"color"`
}

type resumeListItem struct {
	ID        uint      `json:"id"`
	FullName  string    `json:"full_name"`
	Template  string    `json:"template"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type resumeResponse struct {
	ID         uint      `json:"id"`
	FullName   string    `json:"full_name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Summary    string    `json:"summary"`
	Skills     string    `json:"skills"`
	Experience string    `json:"experience"`
	Education  string    `json:"education"`
	WorkLink   string    `json:"work_link"`
	Template   string    `json:"template"`
	Color      string    `json:"color"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CreateResume 新建一份简历，未提供的字段保持编辑器初始状态。
func (h *ResumeHandler) CreateResume(c *gin.Context) {
	var req resumeFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	resume := database.Resume{
		UserID:   userID,
		Template: database.DefaultTemplate,
		Color:    database.DefaultColor,
		Status:   "draft",
	}
	applyResumeFields(&resume, req)

	if err := h.db.WithContext(c.Request.Context()).Create(&resume).Error; err != nil {
		Internal(c, "failed to create resume")
		return
	}

	c.JSON(http.StatusCreated, newResumeResponse(resume))
}

// GetLatestResume 返回用户最近编辑的简历；没有任何简历时自动建一份草稿。
// 编辑器首屏依赖这个 get-or-create 语义。
func (h *ResumeHandler) GetLatestResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	var resume database.Resume
	err := h.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		First(&resume).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			Internal(c, "failed to query latest resume")
			return
		}
		resume = database.Resume{
			UserID:   userID,
			Template: database.DefaultTemplate,
			Color:    database.DefaultColor,
			Status:   "draft",
		}
		if err := h.db.WithContext(ctx).Create(&resume).Error; err != nil {
			Internal(c, "failed to create resume")
			return
		}
	}

	c.JSON(http.StatusOK, newResumeResponse(resume))
}

// ListResumes 列出用户全部简历，最新的在前。
func (h *ResumeHandler) ListResumes(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var resumes []database.Resume
	if err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&resumes).Error; err != nil {
		Internal(c, "failed to list resumes")
		return
	}

	items := make([]resumeListItem, 0, len(resumes))
	for _, r := range resumes {
		items = append(items, resumeListItem{
			ID:        r.ID,
			FullName:  r.FullName,
			Template:  r.Template,
			Status:    r.Status,
			CreatedAt: r.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, items)
}

// GetResume 返回指定 ID 的简历。
func (h *ResumeHandler) GetResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	resume, err := h.getResumeForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.replyResumeLookupError(c, err)
		return
	}

	c.JSON(http.StatusOK, newResumeResponse(*resume))
}

// UpdateResumeFields 保存编辑器字段。只接受白名单内的字段，
// 模板切换不走这里——它要先过付费闸门（见 PreviewResume）。
func (h *ResumeHandler) UpdateResumeFields(c *gin.Context) {
	var req resumeFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	resume, err := h.getResumeForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.replyResumeLookupError(c, err)
		return
	}

	updates := resumeFieldUpdates(req)
	if len(updates) == 0 {
		BadRequest(c, "no fields to update")
		return
	}

	ctx := c.Request.Context()
	if err := h.db.WithContext(ctx).Model(resume).Updates(updates).Error; err != nil {
		Internal(c, "failed to update resume")
		return
	}
	if err := h.db.WithContext(ctx).First(resume, resume.ID).Error; err != nil {
		Internal(c, "failed to reload resume")
		return
	}

	c.JSON(http.StatusOK, newResumeResponse(*resume))
}

// DeleteResume 删除指定简历。
func (h *ResumeHandler) DeleteResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	resume, err := h.getResumeForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.replyResumeLookupError(c, err)
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Delete(&database.Resume{}, resume.ID).Error; err != nil {
		Internal(c, "failed to delete resume")
		return
	}

	c.Status(http.StatusNoContent)
}

// PreviewResume 渲染 HTML 预览。?template= 指定目标模板：
// 免费模板立即生效并持久化；付费模板未支付时返回 402，
// 且不改动简历已存储的模板（拦截发生在持久化之前）。
func (h *ResumeHandler) PreviewResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	resume, err := h.getResumeForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.replyResumeLookupError(c, err)
		return
	}

	ctx := c.Request.Context()
	templateID := c.Query("template")
	decision, err := h.authorizeTemplate(ctx, userID, resume, templateID)
	if err != nil {
		Internal(c, "failed to authorize template")
		return
	}

	switch decision.State {
	case access.StateDenied:
		BadRequest(c, "invalid template id")
		return
	case access.StatePendingPayment:
		h.replyPaymentRequired(c, resume.ID, decision.RendererKey)
		return
	}

	if err := h.persistTemplateChoice(ctx, resume, decision.RendererKey); err != nil {
		Internal(c, "failed to save template choice")
		return
	}

	html, err := h.pipeline.RenderPreview(resume, decision.RendererKey)
	if err != nil {
		Internal(c, "failed to render preview")
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

// DownloadResume 同步渲染 PDF 并作为附件返回。
// 付费模板走与预览相同的闸门；放行即消费一次性支付标记。
func (h *ResumeHandler) DownloadResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	resume, err := h.getResumeForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.replyResumeLookupError(c, err)
		return
	}

	ctx := c.Request.Context()
	templateID := c.Query("template")
	decision, err := h.authorizeTemplate(ctx, userID, resume, templateID)
	if err != nil {
		Internal(c, "failed to authorize template")
		return
	}

	switch decision.State {
	case access.StateDenied:
		BadRequest(c, "invalid template id")
		return
	case access.StatePendingPayment:
		h.replyPaymentRequired(c, resume.ID, decision.RendererKey)
		return
	}

	if err := h.persistTemplateChoice(ctx, resume, decision.RendererKey); err != nil {
		Internal(c, "failed to save template choice")
		return
	}

	pdfBytes, err := h.pipeline.RenderDocument(ctx, resume, decision.RendererKey)
	if err != nil {
		Internal(c, "failed to render pdf")
		return
	}

	if err := h.db.WithContext(ctx).Model(resume).Update("status", "completed").Error; err != nil {
		Internal(c, "failed to update resume status")
		return
	}

	if decision.Tier == catalog.TierPremium {
		// 付费下载完成后丢弃遗留的待支付意图，避免干扰后续会话。
		if _, err := h.sessions.TakePendingIntent(ctx, userKeyFor(userID)); err != nil {
			middleware.LoggerFromContext(c).Warn("clear pending intent failed", slog.Any("error", err))
		}
	}

	filename := fmt.Sprintf("resume-%d.pdf", resume.ID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

// ExportResume 将 PDF 导出任务入队并立即返回 202，
// 完成后经 WebSocket 通知，产物走 GetDownloadLink 取回。
func (h *ResumeHandler) ExportResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	resume, err := h.getResumeForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.replyResumeLookupError(c, err)
		return
	}

	ctx := c.Request.Context()
	templateID := c.Query("template")
	decision, err := h.authorizeTemplate(ctx, userID, resume, templateID)
	if err != nil {
		Internal(c, "failed to authorize template")
		return
	}

	switch decision.State {
	case access.StateDenied:
		BadRequest(c, "invalid template id")
		return
	case access.StatePendingPayment:
		h.replyPaymentRequired(c, resume.ID, decision.RendererKey)
		return
	}

	if err := h.persistTemplateChoice(ctx, resume, decision.RendererKey); err != nil {
		Internal(c, "failed to save template choice")
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	task, err := tasks.NewPDFExportTask(resume.ID, decision.RendererKey, correlationID)
	if err != nil {
		Internal(c, "failed to create task")
		return
	}

	info, err := h.asynqClient.Enqueue(task, asynq.MaxRetry(5))
	if err != nil {
		Internal(c, "failed to enqueue pdf export")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "PDF export request accepted",
		"task_id": info.ID,
	})
}

// GetDownloadLink 生成简历 PDF 的预签名下载链接。
func (h *ResumeHandler) GetDownloadLink(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	resume, err := h.getResumeForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.replyResumeLookupError(c, err)
		return
	}

	if resume.PdfUrl == "" {
		Conflict(c, "pdf not ready")
		return
	}

	signedURL, err := h.storage.GeneratePresignedURL(c.Request.Context(), resume.PdfUrl, 5*time.Minute)
	if err != nil {
		Internal(c, "failed to generate download link")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}

// authorizeTemplate 调用付费闸门。空模板参数表示沿用已存储的模板，
// 这时以存储值参与判定（老简历可能存着付费模板）。
func (h *ResumeHandler) authorizeTemplate(ctx context.Context, userID uint, resume *database.Resume, requested string) (access.Decision, error) {
	effective := requested
	if effective == "" {
		effective = resume.Template
	}
	return h.gate.Authorize(ctx, userKeyFor(userID), resume.ID, effective)
}

// persistTemplateChoice 在闸门放行之后把模板切换落库。
// 落库的是解析后的 renderer key，未知标识不会进入存储。
func (h *ResumeHandler) persistTemplateChoice(ctx context.Context, resume *database.Resume, rendererKey string) error {
	if rendererKey == "" || rendererKey == resume.Template {
		return nil
	}
	if err := h.db.WithContext(ctx).Model(resume).Update("template", rendererKey).Error; err != nil {
		return err
	}
	resume.Template = rendererKey
	return nil
}

// replyPaymentRequired 返回 402 与收银台引导信息。
// template 取闸门解析后的标识：请求参数为空、沿用存储模板触发拦截时，
// 原始参数是空串，前端拿它发起 checkout 会被拒。
func (h *ResumeHandler) replyPaymentRequired(c *gin.Context, resumeID uint, templateID string) {
	c.JSON(http.StatusPaymentRequired, gin.H{
		"error":        "payment required",
		"resume_id":    resumeID,
		"template":     templateID,
		"checkout_url": "/v1/payments/checkout",
	})
}

func (h *ResumeHandler) replyResumeLookupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errInvalidResumeID):
		BadRequest(c, "invalid resume id")
	case errors.Is(err, gorm.ErrRecordNotFound):
		NotFound(c, "resume not found")
	default:
		Internal(c, "failed to query resume")
	}
}

func (h *ResumeHandler) getResumeForUser(ctx context.Context, idParam string, userID uint) (*database.Resume, error) {
	resumeID, err := strconv.ParseUint(idParam, 10, 64)
	if err != nil {
		return nil, errInvalidResumeID
	}

	var resume database.Resume
	if err := h.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", uint(resumeID), userID).
		First(&resume).Error; err != nil {
		return nil, err
	}

	return &resume, nil
}

func applyResumeFields(resume *database.Resume, req resumeFieldsRequest) {
	if req.FullName != nil {
		resume.FullName = *req.FullName
	}
	if req.Email != nil {
		resume.Email = *req.Email
	}
	if req.Phone != nil {
		resume.Phone = *req.Phone
	}
	if req.Summary != nil {
		resume.Summary = *req.Summary
	}
	if req.Skills != nil {
		resume.Skills = *req.Skills
	}
	if req.Experience != nil {
		resume.Experience = *req.Experience
	}
	if req.Education != nil {
		resume.Education = *req.Education
	}
	if req.WorkLink != nil {
		resume.WorkLink = *req.WorkLink
	}
	if req.Color != nil {
		resume.Color = *req.Color
	}
}

func resumeFieldUpdates(req resumeFieldsRequest) map[string]any {
	updates := make(map[string]any)
	if req.FullName != nil {
		updates["full_name"] = *req.FullName
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Summary != nil {
		updates["summary"] = *req.Summary
	}
	if req.Skills != nil {
		updates["skills"] = *req.Skills
	}
	if req.Experience != nil {
		updates["experience"] = *req.Experience
	}
	if req.Education != nil {
		updates["education"] = *req.Education
	}
	if req.WorkLink != nil {
		updates["work_link"] = *req.WorkLink
	}
	if req.Color != nil {
		updates["color"] = *req.Color
	}
	return updates
}

func userKeyFor(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}

func userIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get("userID")
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	case uint64:
		return uint(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	default:
		return 0, false
	}
}

func newResumeResponse(resume database.Resume) resumeResponse {
	return resumeResponse{
		ID:         resume.ID,
		FullName:   resume.FullName,
		Email:      resume.Email,
		Phone:      resume.Phone,
		Summary:    resume.Summary,
		Skills:     resume.Skills,
		Experience: resume.Experience,
		Education:  resume.Education,
		WorkLink:   resume.WorkLink,
		Template:   resume.Template,
		Color:      resume.Color,
		Status:     resume.Status,
		CreatedAt:  resume.CreatedAt,
		UpdatedAt:  resume.UpdatedAt,
	}
}
