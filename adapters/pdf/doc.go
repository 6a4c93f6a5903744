// Package releasepdf provides the conversion engines behind the release order
// PDF export.
//
// ChromiumEngine loads the rendered print page in a shared headless browser
// and either captures it as a raster image sliced into pages or prints it
// with the browser's own PDF backend. NativeEngine draws the static document
// directly with gofpdf. WKHTMLTOPDFEngine pipes the print page through the
// wkhtmltopdf binary. Chain picks the first engine available in the current
// environment, and Inspector reads page counts and text back from the output.
package releasepdf
