package printpal

import (
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Quality selects the generation tier.
type Quality string

// Available quality tiers.
const (
	QualityDefault          Quality = "default"
	QualityHigh             Quality = "high"
	QualityUltra            Quality = "ultra"
	QualitySuper            Quality = "super"
	QualitySuperTexture     Quality = "super_texture"
	QualitySuperplus        Quality = "superplus"
	QualitySuperplusTexture Quality = "superplus_texture"
)

// Format selects the output model format.
type Format string

// Available output formats.
const (
	FormatSTL Format = "stl"
	FormatGLB Format = "glb"
	FormatOBJ Format = "obj"
	FormatPLY Format = "ply"
	FormatFBX Format = "fbx"
)

// DefaultWaitTimeout applies when a generation reports a quality this
// package does not know about.
const DefaultWaitTimeout = 10 * time.Minute

type tier struct {
	credits       int
	estimatedTime time.Duration
	waitTimeout   time.Duration
	resolution    string
	formats       []Format
}

var tiers = map[Quality]tier{
	QualityDefault: {
		credits:       4,
		estimatedTime: 20 * time.Second,
		waitTimeout:   2 * time.Minute,
		resolution:    "256 cubed",
		formats:       []Format{FormatSTL, FormatGLB, FormatOBJ, FormatPLY},
	},
	QualityHigh: {
		credits:       6,
		estimatedTime: 30 * time.Second,
		waitTimeout:   3 * time.Minute,
		resolution:    "384 cubed",
		formats:       []Format{FormatSTL, FormatGLB, FormatOBJ, FormatPLY},
	},
	QualityUltra: {
		credits:       8,
		estimatedTime: 50 * time.Second,
		waitTimeout:   5 * time.Minute,
		resolution:    "512 cubed",
		formats:       []Format{FormatSTL, FormatGLB, FormatOBJ, FormatPLY},
	},
	QualitySuper: {
		credits:       20,
		estimatedTime: 120 * time.Second,
		waitTimeout:   6 * time.Minute,
		resolution:    "768 cubed",
		formats:       []Format{FormatSTL, FormatGLB, FormatOBJ, FormatFBX},
	},
	QualitySuperTexture: {
		credits:       40,
		estimatedTime: 300 * time.Second,
		waitTimeout:   10 * time.Minute,
		resolution:    "768 cubed",
		formats:       []Format{FormatGLB, FormatOBJ},
	},
	QualitySuperplus: {
		credits:       30,
		estimatedTime: 180 * time.Second,
		waitTimeout:   8 * time.Minute,
		resolution:    "1024 cubed",
		formats:       []Format{FormatSTL, FormatGLB, FormatOBJ, FormatFBX},
	},
	QualitySuperplusTexture: {
		credits:       50,
		estimatedTime: 500 * time.Second,
		waitTimeout:   10 * time.Minute,
		resolution:    "1024 cubed",
		formats:       []Format{FormatGLB, FormatOBJ},
	},
}

// Qualities returns every known tier from cheapest to most detailed.
func Qualities() []Quality {
	return []Quality{
		QualityDefault,
		QualityHigh,
		QualityUltra,
		QualitySuper,
		QualitySuperTexture,
		QualitySuperplus,
		QualitySuperplusTexture,
	}
}

// Formats returns every known output format.
func Formats() []Format {
	return []Format{FormatSTL, FormatGLB, FormatOBJ, FormatPLY, FormatFBX}
}

// ParseQuality canonicalizes a quality name.
func ParseQuality(value string) (Quality, error) {
	q := Quality(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := tiers[q]; !ok {
		return "", newValidationError("invalid quality: %q", value)
	}
	return q, nil
}

// ParseFormat canonicalizes a format name. A leading dot is accepted so file
// extensions can be passed directly.
func ParseFormat(value string) (Format, error) {
	f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(value)), "."))
	if !slices.Contains(Formats(), f) {
		return "", newValidationError("invalid format: %q", value)
	}
	return f, nil
}

// Valid reports whether q is a known tier.
func (q Quality) Valid() bool {
	_, ok := tiers[q]
	return ok
}

// IsSuper reports whether q belongs to the super/superplus family, which
// ignores the numeric generation knobs and does not accept text prompts.
func (q Quality) IsSuper() bool {
	switch q {
	case QualitySuper, QualitySuperTexture, QualitySuperplus, QualitySuperplusTexture:
		return true
	default:
		return false
	}
}

// CreditCost returns the credits charged per generation, or 0 for unknown tiers.
func (q Quality) CreditCost() int {
	return tiers[q].credits
}

// EstimatedTime returns the typical generation duration.
func (q Quality) EstimatedTime() time.Duration {
	return tiers[q].estimatedTime
}

// WaitTimeout returns the recommended polling deadline for the tier.
func (q Quality) WaitTimeout() time.Duration {
	if t, ok := tiers[q]; ok {
		return t.waitTimeout
	}
	return DefaultWaitTimeout
}

// Resolution describes the voxel grid used by the tier.
func (q Quality) Resolution() string {
	return tiers[q].resolution
}

// ValidFormats returns the output formats the tier can produce.
func (q Quality) ValidFormats() []Format {
	return slices.Clone(tiers[q].formats)
}

// Supports reports whether the tier can produce f.
func (q Quality) Supports(f Format) bool {
	return slices.Contains(tiers[q].formats, f)
}

// FormatFromPath infers an output format from a file extension, falling back
// to STL when the extension is missing or unrecognized.
func FormatFromPath(path string) Format {
	if f, err := ParseFormat(filepath.Ext(strings.TrimSpace(path))); err == nil {
		return f
	}
	return FormatSTL
}
