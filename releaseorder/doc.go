// Package releaseorder holds the Release Order form state, its image assets,
// and the pipeline that turns a form snapshot into a static document for PDF
// export or a printable clean view.
//
// Engines, templates, persistence and transports live under adapters/.
package releaseorder
