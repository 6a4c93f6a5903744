// Package releasexlsx writes the release order schedule to an XLSX workbook.
package releasexlsx
