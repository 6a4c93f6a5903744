package releaseorder

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"text/template"
	"time"
)

// DefaultFilenameTemplate names exported PDFs.
const DefaultFilenameTemplate = "release-order{{if .OrderNumber}}-{{.OrderNumber}}{{end}}"

type filenameData struct {
	OrderNumber string
	ClientName  string
	OrderDate   string
	Timestamp   string
	Date        string
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// RenderFilename expands a filename template against the form fields and
// appends the extension when missing.
func RenderFilename(pattern string, fields FormFields, ext string, now time.Time) (string, error) {
	if pattern == "" {
		pattern = DefaultFilenameTemplate
	}

	data := filenameData{
		OrderNumber: sanitizeFilenamePart(fields.OrderNumber),
		ClientName:  sanitizeFilenamePart(fields.ClientName),
		OrderDate:   sanitizeFilenamePart(fields.OrderDate),
		Timestamp:   now.UTC().Format("20060102T150405Z"),
		Date:        now.UTC().Format("20060102"),
	}

	tmpl, err := template.New("filename").Parse(pattern)
	if err != nil {
		return "", NewError(KindValidation, "invalid filename template", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", NewError(KindValidation, "invalid filename template", err)
	}

	result := sanitizeFilenamePart(buf.String())
	if result == "" {
		return "", NewError(KindValidation, fmt.Sprintf("filename template %q rendered empty", pattern), nil)
	}

	ext = strings.TrimPrefix(ext, ".")
	if ext != "" && !strings.HasSuffix(strings.ToLower(result), "."+ext) {
		result = result + "." + ext
	}
	return result, nil
}

func sanitizeFilenamePart(value string) string {
	value = unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(value), "-")
	return strings.Trim(value, "-.")
}
