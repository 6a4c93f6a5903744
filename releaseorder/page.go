package releaseorder

import (
	"strings"
	"time"
)

// A4 portrait page size in millimetres.
const (
	A4WidthMM  = 210.0
	A4HeightMM = 297.0
)

// DefaultMarginMM is applied to every page edge.
const DefaultMarginMM = 10.0

// Margins holds per-edge page margins in millimetres.
type Margins struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// UniformMargins returns margins with the same value on every edge.
func UniformMargins(mm float64) Margins {
	return Margins{Top: mm, Right: mm, Bottom: mm, Left: mm}
}

// IsZero reports whether no margin was set.
func (m Margins) IsZero() bool {
	return m == Margins{}
}

// PageSetup fixes the page geometry of exported documents independent of any
// viewport.
type PageSetup struct {
	Format      string  `json:"format"`
	Orientation string  `json:"orientation"`
	Unit        string  `json:"unit"`
	WidthMM     float64 `json:"width_mm"`
	HeightMM    float64 `json:"height_mm"`
	Margins     Margins `json:"margins"`
}

// DefaultPageSetup returns A4 portrait with default margins.
func DefaultPageSetup() PageSetup {
	return PageSetup{
		Format:      "a4",
		Orientation: "portrait",
		Unit:        "mm",
		WidthMM:     A4WidthMM,
		HeightMM:    A4HeightMM,
		Margins:     UniformMargins(DefaultMarginMM),
	}
}

// ContentWidthMM is the printable width inside the margins.
func (p PageSetup) ContentWidthMM() float64 {
	return p.WidthMM - p.Margins.Left - p.Margins.Right
}

// ContentHeightMM is the printable height inside the margins.
func (p PageSetup) ContentHeightMM() float64 {
	return p.HeightMM - p.Margins.Top - p.Margins.Bottom
}

func (p PageSetup) withDefaults() PageSetup {
	def := DefaultPageSetup()
	if p.Format == "" {
		p.Format = def.Format
	}
	if p.Orientation == "" {
		p.Orientation = def.Orientation
	}
	if p.Unit == "" {
		p.Unit = def.Unit
	}
	if p.WidthMM <= 0 || p.HeightMM <= 0 {
		p.WidthMM, p.HeightMM = def.WidthMM, def.HeightMM
	}
	if strings.EqualFold(p.Orientation, "landscape") && p.WidthMM < p.HeightMM {
		p.WidthMM, p.HeightMM = p.HeightMM, p.WidthMM
	}
	if p.Margins.IsZero() {
		p.Margins = def.Margins
	}
	return p
}

// ExportOptions configures a PDF export. Zero fields take defaults.
type ExportOptions struct {
	Margins      Margins
	Filename     string
	ImageType    string
	ImageQuality float64
	Scale        float64
	UseCORS      *bool
	Unit         string
	Format       string
	Orientation  string
	Timeout      time.Duration
}

// DefaultExportOptions returns the conversion options used by the form.
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		Margins:      UniformMargins(DefaultMarginMM),
		ImageType:    "jpeg",
		ImageQuality: 0.98,
		Scale:        2,
		UseCORS:      BoolPtr(true),
		Unit:         "mm",
		Format:       "a4",
		Orientation:  "portrait",
	}
}

// Merge overlays the non-zero fields of override onto o.
func (o ExportOptions) Merge(override ExportOptions) ExportOptions {
	if !override.Margins.IsZero() {
		o.Margins = override.Margins
	}
	if override.Filename != "" {
		o.Filename = override.Filename
	}
	if override.ImageType != "" {
		o.ImageType = override.ImageType
	}
	if override.ImageQuality > 0 {
		o.ImageQuality = override.ImageQuality
	}
	if override.Scale > 0 {
		o.Scale = override.Scale
	}
	if override.UseCORS != nil {
		o.UseCORS = BoolPtr(*override.UseCORS)
	}
	if override.Unit != "" {
		o.Unit = override.Unit
	}
	if override.Format != "" {
		o.Format = override.Format
	}
	if override.Orientation != "" {
		o.Orientation = override.Orientation
	}
	if override.Timeout > 0 {
		o.Timeout = override.Timeout
	}
	return o
}

// AllowsExternalAssets reports whether capture may fetch http(s) assets.
// Unset means allowed.
func (o ExportOptions) AllowsExternalAssets() bool {
	return o.UseCORS == nil || *o.UseCORS
}

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool {
	return &v
}

// Page returns the page geometry the options describe.
func (o ExportOptions) Page() PageSetup {
	page := PageSetup{
		Format:      strings.ToLower(o.Format),
		Orientation: strings.ToLower(o.Orientation),
		Unit:        o.Unit,
		Margins:     o.Margins,
	}
	if size, ok := pageSizesMM[page.Format]; ok {
		page.WidthMM, page.HeightMM = size[0], size[1]
	}
	return page.withDefaults()
}

// JPEGQuality returns the image quality on the 1-100 scale.
func (o ExportOptions) JPEGQuality() int {
	quality := int(o.ImageQuality*100 + 0.5)
	if quality <= 0 || quality > 100 {
		return 98
	}
	return quality
}

var pageSizesMM = map[string][2]float64{
	"a3":     {297, 420},
	"a4":     {A4WidthMM, A4HeightMM},
	"a5":     {148, 210},
	"letter": {215.9, 279.4},
	"legal":  {215.9, 355.6},
}
