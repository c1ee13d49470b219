// Package format pretty-prints DTO files from their syntax tree.
//
// The printer re-emits every construct with canonical spacing and a fixed
// indentation, groups imports by package and keeps comments next to the
// construct they preceded. Files with syntax errors are not formatted.
package format
