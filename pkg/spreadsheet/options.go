// Package spreadsheet creates, loads, reads and stores workbooks against
// named storage disks.
package spreadsheet

import (
	"time"

	"github.com/osmaviation/spreadsheet/pkg/spreadsheet/cache"
	"go.uber.org/zap"
)

// Options configures a Service.
type Options struct {
	// Cache memoizes header normalization. Nil disables caching.
	Cache cache.Cache
	// CacheTTL bounds how long cached entries live. Zero never expires.
	CacheTTL time.Duration
	// Logger receives operation logs. Nil discards them.
	Logger *zap.Logger
	// Extract holds the defaults used by Service.Extract.
	Extract ExtractOptions
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Mode represents the extraction mode.
type Mode string

const (
	// ModeLight extracts cells only.
	ModeLight Mode = "light"
	// ModeStandard extracts cells, table candidates and print areas.
	ModeStandard Mode = "standard"
	// ModeVerbose also extracts cell hyperlinks.
	ModeVerbose Mode = "verbose"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeLight, ModeStandard, ModeVerbose:
		return Mode(s), true
	}
	return "", false
}

// ExtractOptions configures structured extraction.
type ExtractOptions struct {
	// Mode specifies the extraction mode (light, standard, verbose).
	Mode Mode
	// IncludeLinks specifies whether to include cell hyperlinks.
	// If nil, defaults to true for verbose mode, false otherwise.
	IncludeLinks *bool
	// IncludePrintAreas specifies whether to include print areas.
	// If nil, defaults to false for light mode, true otherwise.
	IncludePrintAreas *bool
}

// DefaultExtractOptions returns default extraction options.
func DefaultExtractOptions() ExtractOptions {
	return ExtractOptions{
		Mode: ModeStandard,
	}
}

// ShouldIncludeLinks returns whether to include cell hyperlinks.
func (o ExtractOptions) ShouldIncludeLinks() bool {
	if o.IncludeLinks != nil {
		return *o.IncludeLinks
	}
	return o.Mode == ModeVerbose
}

// ShouldIncludePrintAreas returns whether to include print areas.
func (o ExtractOptions) ShouldIncludePrintAreas() bool {
	if o.IncludePrintAreas != nil {
		return *o.IncludePrintAreas
	}
	return o.Mode != ModeLight
}

// ShouldDetectTables returns whether to search for table candidates.
func (o ExtractOptions) ShouldDetectTables() bool {
	return o.Mode != ModeLight
}
