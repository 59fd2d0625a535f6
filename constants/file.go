package constants

import "strings"

// SourceKind groups input extensions by the extraction strategy they need.
type SourceKind string

const (
	SourcePDF  SourceKind = "PDF"
	SourceCSV  SourceKind = "CSV"
	SourceJSON SourceKind = "JSON"
	SourceXLSX SourceKind = "XLSX"
	SourceText SourceKind = "TEXT"
)

// AllowedExtensions holds the extensions discovered when a directory is expanded
// or watched. Explicitly listed files are never filtered.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"csv":  {},
	"json": {},
	"xlsx": {},
	"txt":  {},
	"md":   {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToSource returns the extraction strategy for an extension.
// Anything not recognized is treated as plain text.
func MapExtToSource(ext string) SourceKind {
	switch NormalizeExt(ext) {
	case "pdf":
		return SourcePDF
	case "csv":
		return SourceCSV
	case "json":
		return SourceJSON
	case "xlsx":
		return SourceXLSX
	default:
		return SourceText
	}
}

// IsAllowedExt reports whether ext is picked up by directory discovery.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}
