// Package sheeturi parses the spreadsheet URIs accepted by the tools:
// Google-Sheets-style URLs and local workbook paths.
package sheeturi

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind discriminates backend routing for a parsed URI.
type Kind string

const (
	KindGoogle Kind = "google"
	KindLocal  Kind = "local"
)

// Ref is a parsed spreadsheet reference.
type Ref struct {
	Kind Kind
	// SpreadsheetID and GID are set for Google-style URLs. GID is empty
	// when the URL does not name a sheet.
	SpreadsheetID string
	GID           string
	// Path is set for local workbook URIs.
	Path string
}

var (
	idPattern  = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9\-_]+)`)
	gidPattern = regexp.MustCompile(`[#&?]gid=(\d+)`)
)

// Parse classifies and decomposes a spreadsheet URI. Anything that is not
// a Google Sheets URL is treated as a local workbook path; file:// and
// local: prefixes are stripped.
func Parse(uri string) (Ref, error) {
	s := strings.TrimSpace(uri)
	if s == "" {
		return Ref{}, fmt.Errorf("sheeturi: empty uri")
	}

	if strings.Contains(s, "docs.google.com") || strings.Contains(s, "/spreadsheets/d/") {
		m := idPattern.FindStringSubmatch(s)
		if m == nil {
			return Ref{}, fmt.Errorf("sheeturi: not a valid Google Sheets url: %s", s)
		}
		ref := Ref{Kind: KindGoogle, SpreadsheetID: m[1]}
		if gm := gidPattern.FindStringSubmatch(s); gm != nil {
			ref.GID = gm[1]
		}
		return ref, nil
	}

	path := s
	for _, prefix := range []string{"file://", "local:"} {
		if strings.HasPrefix(path, prefix) {
			path = strings.TrimPrefix(path, prefix)
			break
		}
	}
	if path == "" {
		return Ref{}, fmt.Errorf("sheeturi: empty path in uri %q", uri)
	}
	return Ref{Kind: KindLocal, Path: path}, nil
}

// FormatGoogle renders the canonical URL for a spreadsheet and sheet id.
func FormatGoogle(spreadsheetID, gid string) string {
	if gid == "" {
		gid = "0"
	}
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/edit#gid=%s", spreadsheetID, gid)
}
