package releaseorder

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Mode selects the layout regime for auto-growing text areas.
type Mode string

const (
	// ModeScreen is the live editing view: generous minimum, scrollable.
	ModeScreen Mode = "screen"
	// ModeExport is print/PDF output: clamped to a maximum, clipped.
	ModeExport Mode = "export"
)

// TextAreaKind distinguishes the large matter field from table cells.
type TextAreaKind string

const (
	TextAreaMatter TextAreaKind = "matter"
	TextAreaCell   TextAreaKind = "cell"
)

// Overflow is the CSS overflow behavior of a sized text area.
type Overflow string

const (
	OverflowAuto   Overflow = "auto"
	OverflowHidden Overflow = "hidden"
)

// TextMetrics approximates the rendered box of a text area, in CSS pixels.
type TextMetrics struct {
	Width      float64
	LineHeight float64
	CharWidth  float64
	PaddingY   float64
}

// SizeBounds holds the minimum and maximum height. Max 0 means unbounded.
type SizeBounds struct {
	Min float64
	Max float64
}

// AutoSizeConfig carries metrics and bounds per kind and mode.
type AutoSizeConfig struct {
	Metrics map[TextAreaKind]TextMetrics
	Screen  map[TextAreaKind]SizeBounds
	Export  map[TextAreaKind]SizeBounds
}

// Box is the outcome of sizing one text area.
type Box struct {
	Height   float64  `json:"height"`
	Natural  float64  `json:"natural"`
	Overflow Overflow `json:"overflow"`
	Clipped  bool     `json:"clipped"`
}

// DefaultAutoSizeConfig returns the form's sizing constants.
func DefaultAutoSizeConfig() AutoSizeConfig {
	return AutoSizeConfig{
		Metrics: map[TextAreaKind]TextMetrics{
			TextAreaMatter: {Width: 680, LineHeight: 20, CharWidth: 7.5, PaddingY: 16},
			TextAreaCell:   {Width: 110, LineHeight: 16, CharWidth: 6.5, PaddingY: 8},
		},
		Screen: map[TextAreaKind]SizeBounds{
			TextAreaMatter: {Min: 150},
			TextAreaCell:   {Min: 40},
		},
		Export: map[TextAreaKind]SizeBounds{
			TextAreaMatter: {Min: 100, Max: 420},
			TextAreaCell:   {Min: 24, Max: 96},
		},
	}
}

// Bounds returns the height bounds for the kind in the given mode.
func (c AutoSizeConfig) Bounds(kind TextAreaKind, mode Mode) SizeBounds {
	table := c.Screen
	if mode == ModeExport {
		table = c.Export
	}
	bounds := table[kind]
	if mode != ModeExport {
		bounds.Max = 0
	}
	return bounds
}

// NaturalHeight is the height needed to show text without scrolling.
func NaturalHeight(text string, m TextMetrics) float64 {
	perLine := 1
	if m.CharWidth > 0 && m.Width > 0 {
		perLine = max(int(math.Floor(m.Width/m.CharWidth)), 1)
	}
	lines := 0
	for _, line := range strings.Split(normalizeNewlines(text), "\n") {
		count := utf8.RuneCountInString(line)
		if count == 0 {
			lines++
			continue
		}
		lines += (count + perLine - 1) / perLine
	}
	return float64(lines)*m.LineHeight + m.PaddingY
}

// AutoSize computes the height of a text area holding text. The height is
// never below the minimum for (kind, mode). In ModeExport it is clamped to
// the maximum and overflow is hidden; in ModeScreen it stays scrollable.
func AutoSize(text string, kind TextAreaKind, mode Mode, cfg AutoSizeConfig) Box {
	natural := NaturalHeight(text, cfg.Metrics[kind])
	bounds := cfg.Bounds(kind, mode)

	box := Box{
		Height:   math.Max(natural, bounds.Min),
		Natural:  natural,
		Overflow: OverflowAuto,
	}
	if mode != ModeExport {
		return box
	}

	box.Overflow = OverflowHidden
	if bounds.Max > 0 && box.Height > bounds.Max {
		box.Height = bounds.Max
		box.Clipped = true
	}
	return box
}

// VisibleLines returns the leading lines that fit inside box.
func VisibleLines(lines []string, box Box, m TextMetrics) []string {
	if !box.Clipped || m.LineHeight <= 0 {
		return lines
	}
	fit := int(math.Floor((box.Height - m.PaddingY) / m.LineHeight))
	if fit < 0 {
		fit = 0
	}
	if fit >= len(lines) {
		return lines
	}
	return lines[:fit]
}

func normalizeNewlines(text string) string {
	return strings.ReplaceAll(strings.ReplaceAll(text, "\r\n", "\n"), "\r", "\n")
}
