package tasks

import "github.com/sunrotstudios/velvet-metal/internal/models"

// DiffResult holds the edits that make a target track list match a source
// track list by identity. Tracks present on both sides are left untouched;
// ordering is never changed.
type DiffResult struct {
	ToAdd    []models.Track // in source, absent from target
	ToRemove []models.Track // in target, absent from source
}

// Empty reports whether the lists are already reconciled.
func (d DiffResult) Empty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0
}

// DiffTracks computes the set difference in both directions using [SameTrack]
// as the equality predicate.
//
// Complexity is O(n*m). Playlists top out in the hundreds of tracks, so the
// nested scan beats building and tearing down index maps on every pass.
func DiffTracks(source, target []models.Track) DiffResult {
	var result DiffResult

	for _, src := range source {
		found := false
		for _, dst := range target {
			if SameTrack(src, dst) {
				found = true
				break
			}
		}
		if !found {
			result.ToAdd = append(result.ToAdd, src)
		}
	}

	for _, dst := range target {
		found := false
		for _, src := range source {
			if SameTrack(src, dst) {
				found = true
				break
			}
		}
		if !found {
			result.ToRemove = append(result.ToRemove, dst)
		}
	}

	return result
}
