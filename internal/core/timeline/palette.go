package timeline

// ColorNeutral 未知分类
const ColorNeutral = "#6b7280"

var severityColors = map[Severity]string{
	SeverityCritical: "#dc2626",
	SeverityHigh:     "#ea580c",
	SeverityMedium:   "#ca8a04",
	SeverityLow:      "#16a34a",
}

var categoryColors = map[string]string{
	"Gun Threat":          "#ef4444",
	"Unauthorised Access": "#f97316",
	"Face Recognised":     "#3b82f6",
	"Suspicious Activity": "#eab308",
	"Motion Detection":    "#22c55e",
	"Equipment Tampering": "#a855f7",
}

// IncidentColor 先按严重程度，其次按分类，都不认识则为灰色
func IncidentColor(inc Incident) string {
	if c, ok := severityColors[inc.Severity]; ok {
		return c
	}
	return CategoryColor(inc.Category)
}

// CategoryColor 图例使用的分类颜色
func CategoryColor(category string) string {
	if c, ok := categoryColors[category]; ok {
		return c
	}
	return ColorNeutral
}
