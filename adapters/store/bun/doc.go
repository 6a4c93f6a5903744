// Package releasestorebun persists release order images and the export
// history in a SQL database through Bun.
//
// Call CreateSchema once at startup to create the tables.
package releasestorebun
