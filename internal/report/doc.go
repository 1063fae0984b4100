// Package report renders discovery results in multiple output formats.
//
// Three writers are provided:
//   - SimpleWriter: human-readable terminal output
//   - JSONWriter: machine-readable output for tool integration
//   - MarkdownWriter: documentation-friendly output with charts
//
// All writers implement the Writer interface, and MultiWriter fans one
// report out to several destinations.
package report
