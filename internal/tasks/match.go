package tasks

import (
	"strings"

	"github.com/sunrotstudios/velvet-metal/internal/models"
)

// SameTrack reports whether two tracks from different services represent the
// same recording.
//
// When both sides carry an ISRC it is treated as ground truth: the codes are
// compared verbatim and the name/artist comparison is skipped entirely.
// Otherwise identity falls back to case-insensitive equality of title AND
// artist. Album and duration never participate. There is no fuzzy matching;
// metadata differences like remaster suffixes or featuring-artist formatting
// produce false negatives, which is an accepted limitation.
//
// Pure function, safe to call concurrently.
func SameTrack(a, b models.Track) bool {
	if a.ISRC != "" && b.ISRC != "" {
		return a.ISRC == b.ISRC
	}
	return strings.EqualFold(a.Title, b.Title) && strings.EqualFold(a.Artist, b.Artist)
}
