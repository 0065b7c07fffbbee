// Package files groups the source-file plumbing of the loader.
//
// Subpackages:
//   - filesystem: where dataset dumps are opened from (OS directory or memory)
//   - tsv: header-addressed tab-separated record reader over an opened dump
package files
