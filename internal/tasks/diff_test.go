package tasks

import (
	"testing"

	"github.com/sunrotstudios/velvet-metal/internal/models"
)

func TestDiffTracks(t *testing.T) {
	t.Run("MixedMatches", func(t *testing.T) {
		source := []models.Track{
			{Title: "A", Artist: "X", ISRC: "US1"},
			{Title: "B", Artist: "Y"},
		}
		target := []models.Track{
			{Title: "a", Artist: "x", ISRC: "US1"},
			{Title: "C", Artist: "Z"},
		}

		diff := DiffTracks(source, target)

		if len(diff.ToAdd) != 1 || diff.ToAdd[0].Title != "B" {
			t.Errorf("ToAdd = %+v, want [B]", diff.ToAdd)
		}
		if len(diff.ToRemove) != 1 || diff.ToRemove[0].Title != "C" {
			t.Errorf("ToRemove = %+v, want [C]", diff.ToRemove)
		}
	})

	t.Run("EmptyLists", func(t *testing.T) {
		if diff := DiffTracks(nil, nil); !diff.Empty() {
			t.Errorf("diff of empty lists = %+v", diff)
		}

		source := []models.Track{{Title: "A", Artist: "X"}}
		diff := DiffTracks(source, nil)
		if len(diff.ToAdd) != 1 || len(diff.ToRemove) != 0 {
			t.Errorf("diff against empty target = %+v", diff)
		}

		diff = DiffTracks(nil, source)
		if len(diff.ToAdd) != 0 || len(diff.ToRemove) != 1 {
			t.Errorf("diff against empty source = %+v", diff)
		}
	})

	t.Run("Completeness", func(t *testing.T) {
		source := []models.Track{
			{Title: "A", Artist: "X", ISRC: "US1"},
			{Title: "B", Artist: "Y"},
			{Title: "D", Artist: "W", ISRC: "US4"},
		}
		target := []models.Track{
			{Title: "A", Artist: "X", ISRC: "US1"},
			{Title: "C", Artist: "Z"},
		}

		diff := DiffTracks(source, target)

		for _, add := range diff.ToAdd {
			for _, dst := range target {
				if SameTrack(add, dst) {
					t.Errorf("ToAdd track %q already present in target", add.Title)
				}
			}
		}
		for _, rem := range diff.ToRemove {
			for _, src := range source {
				if SameTrack(rem, src) {
					t.Errorf("ToRemove track %q still present in source", rem.Title)
				}
			}
		}
	})

	t.Run("Idempotence", func(t *testing.T) {
		source := []models.Track{
			{Title: "A", Artist: "X", ISRC: "US1"},
			{Title: "B", Artist: "Y"},
		}
		target := []models.Track{
			{Title: "a", Artist: "x", ISRC: "US1"},
			{Title: "C", Artist: "Z"},
		}

		diff := DiffTracks(source, target)

		// apply the edits to produce the reconciled target
		var reconciled []models.Track
		for _, dst := range target {
			removed := false
			for _, rem := range diff.ToRemove {
				if SameTrack(dst, rem) {
					removed = true
					break
				}
			}
			if !removed {
				reconciled = append(reconciled, dst)
			}
		}
		reconciled = append(reconciled, diff.ToAdd...)

		if again := DiffTracks(source, reconciled); !again.Empty() {
			t.Errorf("second diff not empty: %+v", again)
		}
	})

	t.Run("MatchedTracksUntouched", func(t *testing.T) {
		source := []models.Track{{Title: "A", Artist: "X", ISRC: "US1"}}
		target := []models.Track{{Title: "totally different", Artist: "someone", ISRC: "US1"}}

		if diff := DiffTracks(source, target); !diff.Empty() {
			t.Errorf("ISRC-matched pair produced edits: %+v", diff)
		}
	})
}
