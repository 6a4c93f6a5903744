// Package releasestorefs stores uploaded release order images on disk.
package releasestorefs
