package domain

import (
	"fmt"
	"strings"
)

// AspectRatio is the closed set of output framings a provider can be asked for.
type AspectRatio string

const (
	AspectSquare           AspectRatio = "1:1"
	AspectLandscape        AspectRatio = "16:9"
	AspectPortrait         AspectRatio = "9:16"
	AspectStandard         AspectRatio = "4:3"
	AspectStandardPortrait AspectRatio = "3:4"
)

// DefaultAspectRatio applies when a request omits the framing.
const DefaultAspectRatio = AspectSquare

// DefaultResolution applies when an aspect ratio has no resolution table.
const DefaultResolution = "1024x1024"

// AllAspectRatios lists every supported ratio in display order.
var AllAspectRatios = []AspectRatio{AspectSquare, AspectLandscape, AspectPortrait, AspectStandard, AspectStandardPortrait}

var resolutionOptions = map[AspectRatio][]string{
	AspectSquare:           {"2048x2048", "1024x1024", "512x512"},
	AspectLandscape:        {"2560x1440", "1920x1080", "1280x720"},
	AspectPortrait:         {"1440x2560", "1080x1920", "720x1280"},
	AspectStandard:         {"2048x1536", "1024x768", "800x600"},
	AspectStandardPortrait: {"1536x2048", "768x1024", "600x800"},
}

// ParseAspectRatio validates raw. An empty value yields DefaultAspectRatio.
func ParseAspectRatio(raw string) (AspectRatio, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultAspectRatio, nil
	}
	ar := AspectRatio(raw)
	if _, ok := resolutionOptions[ar]; !ok {
		return "", fmt.Errorf("%w: unsupported aspect ratio %q", ErrInvalidSelection, raw)
	}
	return ar, nil
}

// Valid reports whether a is one of the supported ratios.
func (a AspectRatio) Valid() bool {
	_, ok := resolutionOptions[a]
	return ok
}

// Resolutions returns the selectable output sizes for a, largest first.
func (a AspectRatio) Resolutions() []string {
	return append([]string(nil), resolutionOptions[a]...)
}

// DefaultResolution returns the first resolution for a, or DefaultResolution.
func (a AspectRatio) DefaultResolution() string {
	if opts := resolutionOptions[a]; len(opts) > 0 {
		return opts[0]
	}
	return DefaultResolution
}

// Dimensions returns the integer ratio parts, e.g. 16 and 9.
func (a AspectRatio) Dimensions() (int, int) {
	switch a {
	case AspectLandscape:
		return 16, 9
	case AspectPortrait:
		return 9, 16
	case AspectStandard:
		return 4, 3
	case AspectStandardPortrait:
		return 3, 4
	default:
		return 1, 1
	}
}

// ValidResolution reports whether size is offered for a.
func (a AspectRatio) ValidResolution(size string) bool {
	for _, opt := range resolutionOptions[a] {
		if opt == size {
			return true
		}
	}
	return false
}
