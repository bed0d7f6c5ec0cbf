package catalog

// Tier 标识模板的收费层级。
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// DefaultTemplate 是所有未知标识的兜底渲染模板。
const DefaultTemplate = "modern"

type entry struct {
	tier        Tier
	rendererKey string
}

// 模板目录是静态的：标识、层级与 renderer key 在编译期固定。
// 新模板上线需要同时提供渲染资产（见 internal/render）。
var entries = map[string]entry{
	"modern":       {tier: TierFree, rendererKey: "modern"},
	"professional": {tier: TierFree, rendererKey: "professional"},
	"simple":       {tier: TierFree, rendererKey: "simple"},
	"creative":     {tier: TierPremium, rendererKey: "creative"},
	"executive":    {tier: TierPremium, rendererKey: "executive"},
	"minimalist":   {tier: TierPremium, rendererKey: "minimalist"},
}

// Resolve 返回标识对应的 renderer key。
// 未知标识永远不报错，而是优雅降级到默认模板。
func Resolve(identifier string) string {
	if e, ok := entries[identifier]; ok {
		return e.rendererKey
	}
	return entries[DefaultTemplate].rendererKey
}

// TierOf 返回标识对应的层级，未知标识按默认模板（免费）处理。
func TierOf(identifier string) Tier {
	if e, ok := entries[identifier]; ok {
		return e.tier
	}
	return entries[DefaultTemplate].tier
}

// Known 报告标识是否在目录中。
func Known(identifier string) bool {
	_, ok := entries[identifier]
	return ok
}

// Identifiers 返回目录中全部模板标识（顺序不保证）。
func Identifiers() []string {
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	return ids
}
