package utils

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/amaumene/clipgrab/internal/models"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

const (
	// ShortlistSize caps the number of formats offered to the user
	ShortlistSize = 3

	// DownloadContainer is the only container offered for direct download
	DownloadContainer = "mp4"
)

// CanonicalTiers are the resolutions preferred when present
var CanonicalTiers = []string{"480p", "720p", "1080p"}

// segmentedProtocols mark manifest-based transports that cannot be piped as one file
var segmentedProtocols = []string{"m3u8", "dash", "f4m", "ism"}

var resolutionRegex = regexp.MustCompile(`(?i)\b(\d{2,4})p\b`)

// ResolutionLabel builds the "<height>p" label from a height, falling back to
// a resolution mentioned in the format note, then to "auto"
func ResolutionLabel(height int, note string) string {
	if height > 0 {
		return fmt.Sprintf("%dp", height)
	}
	if matches := resolutionRegex.FindStringSubmatch(note); len(matches) > 1 {
		return matches[1] + "p"
	}
	return models.ResolutionAuto
}

// ResolutionValue returns the numeric height of a label, 0 for "auto" or garbage
func ResolutionValue(label string) int {
	matches := resolutionRegex.FindStringSubmatch(label)
	if len(matches) > 1 {
		value, err := strconv.Atoi(matches[1])
		if err == nil {
			return value
		}
	}
	return 0
}

// IsSegmented reports whether a protocol is an adaptive/segmented transport
func IsSegmented(protocol string) bool {
	protocol = strings.ToLower(protocol)
	for _, p := range segmentedProtocols {
		if strings.Contains(protocol, p) {
			return true
		}
	}
	return false
}

// IsWatermarked reports whether the format note flags an embedded watermark
func IsWatermarked(note string) bool {
	return strings.Contains(strings.ToLower(note), "watermark")
}

// FilterPlayable keeps progressive formats that can be streamed as a single file:
// both codecs present, no segmented transport, no watermark
func FilterPlayable(formats []models.EncodingDescriptor) []models.EncodingDescriptor {
	return lo.Filter(formats, func(f models.EncodingDescriptor, _ int) bool {
		return f.HasVideo() && f.HasAudio() && !IsSegmented(f.Protocol) && !IsWatermarked(f.Note)
	})
}

// Shortlist reduces a raw format list to at most ShortlistSize user-facing entries:
// 1. canonical tiers (one per tier, first encountered wins)
// 2. otherwise the highest resolutions, "auto" excluded
// 3. otherwise the first entries regardless of resolution
func Shortlist(raw []models.EncodingDescriptor) []models.EncodingDescriptor {
	candidates := lo.Filter(FilterPlayable(raw), func(f models.EncodingDescriptor, _ int) bool {
		return strings.EqualFold(f.Ext, DownloadContainer)
	})

	tiered := lo.Filter(candidates, func(f models.EncodingDescriptor, _ int) bool {
		return lo.Contains(CanonicalTiers, f.Resolution)
	})
	if len(tiered) > 0 {
		return take(lo.UniqBy(tiered, func(f models.EncodingDescriptor) string {
			return f.Resolution
		}), ShortlistSize)
	}

	ranked := lo.Filter(candidates, func(f models.EncodingDescriptor, _ int) bool {
		return f.Resolution != models.ResolutionAuto && ResolutionValue(f.Resolution) > 0
	})
	if len(ranked) > 0 {
		sort.SliceStable(ranked, func(i, j int) bool {
			return ResolutionValue(ranked[i].Resolution) > ResolutionValue(ranked[j].Resolution)
		})
		return take(ranked, ShortlistSize)
	}

	return take(candidates, ShortlistSize)
}

// DefaultSelection picks the highest-resolution entry ("auto" counts as 0);
// on ties the first one wins
func DefaultSelection(shortlist []models.EncodingDescriptor) mo.Option[models.EncodingDescriptor] {
	if len(shortlist) == 0 {
		return mo.None[models.EncodingDescriptor]()
	}

	best := lo.MaxBy(shortlist, func(a, b models.EncodingDescriptor) bool {
		return ResolutionValue(a.Resolution) > ResolutionValue(b.Resolution)
	})
	return mo.Some(best)
}

func take(formats []models.EncodingDescriptor, n int) []models.EncodingDescriptor {
	if len(formats) > n {
		return formats[:n]
	}
	return formats
}
