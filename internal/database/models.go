package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 模板标识与颜色的默认值，与简历编辑器的初始状态保持一致。
const (
	DefaultTemplate = "modern"
	DefaultColor    = "#2563eb"
)

// User 表示系统中的账号信息。邮箱即登录凭证，不再维护独立用户名。
type User struct {
	gorm.Model
	Email        string   `gorm:"uniqueIndex;size:255"`
	PasswordHash string   `gorm:"size:255"`
	Profile      Profile  `gorm:"constraint:OnDelete:CASCADE"`
	Resumes      []Resume `gorm:"constraint:OnDelete:CASCADE"`
}

// Profile 随注册自动创建。IsPremium 目前不参与任何下载授权判断，
// 仅作为未来订阅能力的落点（由 cmd/admin 维护）。
type Profile struct {
	gorm.Model
	UserID    uint `gorm:"uniqueIndex"`
	IsPremium bool `gorm:"default:false"`
}

// Resume 表示用户创建的简历内容。
// 四个长文本字段存放富文本 HTML，净化由编辑器侧负责。
type Resume struct {
	gorm.Model
	UserID     uint   `gorm:"index"`
	User       User   `gorm:"constraint:OnDelete:CASCADE"`
	FullName   string `gorm:"size:100"`
	Email      string `gorm:"size:255"`
	Phone      string `gorm:"size:20"`
	Summary    string `gorm:"type:text"`
	Skills     string `gorm:"type:text"`
	Experience string `gorm:"type:text"`
	Education  string `gorm:"type:text"`
	WorkLink   string `gorm:"size:512"`
	Template   string `gorm:"size:50;default:modern"`
	Color      string `gorm:"size:20;default:#2563eb"`
	PdfUrl     string `gorm:"size:512"`
	Status     string `gorm:"size:32"`
}

// Payment 的生命周期状态：创建收银台会话时为 pending，
// 支付成功回跳核销后置为 completed。放弃支付的会话永远停在 pending。
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
)

// Payment 记录一次付费解锁的审计轨迹，ProviderPayload 保存支付网关返回的原始会话数据。
type Payment struct {
	gorm.Model
	UserID          uint           `gorm:"index"`
	ResumeID        uint           `gorm:"index"`
	Template        string         `gorm:"size:50"`
	Provider        string         `gorm:"size:32"`
	SessionID       string         `gorm:"size:255;index"`
	Status          string         `gorm:"size:16;index"`
	Amount          int64
	Currency        string         `gorm:"size:8"`
	ProviderPayload datatypes.JSON `gorm:"type:jsonb"`
}

// Asset 记录用户上传的图片对象。
type Asset struct {
	gorm.Model
	UserID    uint   `gorm:"index"`
	ObjectKey string `gorm:"size:512;uniqueIndex"`
}
