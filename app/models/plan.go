// Package models defines the persisted entities of the ScaffAI backend.
package models

// Plan is an immutable catalog entry. Plans are created and edited out of
// band; this service only reads them.
type Plan struct {
	ID                     string  `json:"id" db:"id"`
	Name                   string  `json:"name" db:"name"`
	Description            string  `json:"description,omitempty" db:"description"`
	MonthlyPrice           float64 `json:"monthly_price" db:"monthly_price"`
	Currency               string  `json:"currency" db:"currency"`
	MaxProjects            *int    `json:"max_projects" db:"max_projects"`
	MaxDrawingsPerProject  *int    `json:"max_drawings_per_project" db:"max_drawings_per_project"`
	MaxStorageMB           *int    `json:"max_storage_mb" db:"max_storage_mb"`
	AIChatEnabled          bool    `json:"ai_chat_enabled" db:"ai_chat_enabled"`
	AdvancedDrawingEnabled bool    `json:"advanced_drawing_enabled" db:"advanced_drawing_enabled"`
	ExportDXFEnabled       bool    `json:"export_dxf_enabled" db:"export_dxf_enabled"`
	ExportPDFEnabled       bool    `json:"export_pdf_enabled" db:"export_pdf_enabled"`
	OCRAnalysisEnabled     bool    `json:"ocr_analysis_enabled" db:"ocr_analysis_enabled"`
	DisplayOrder           int     `json:"display_order" db:"display_order"`

	// StripePriceID correlates the plan to a Stripe price object. Empty for
	// the free tier. Never serialized to clients.
	StripePriceID string `json:"-" db:"stripe_price_id"`
}

// Purchasable reports whether checkout can be started for this plan.
func (p Plan) Purchasable() bool {
	return p.StripePriceID != ""
}
