package activelearning

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestUncertainty_NoTagsScoresHighest(t *testing.T) {
	withTags := Candidate{ItemID: uuid.New(), MediaID: uuid.New(), AutoTags: []string{"a", "b"}}
	noTags := Candidate{ItemID: uuid.New(), MediaID: uuid.New()}

	ranked := Uncertainty([]Candidate{withTags, noTags}, 0)
	require.Len(t, ranked, 2)
	require.Equal(t, noTags.ItemID, ranked[0].ItemID)
	require.Equal(t, 1.0, ranked[0].Score)
	require.InDelta(t, 1.0/3.0, ranked[1].Score, 1e-9)
}

func TestDiversity_RepeatedTagsLoseNovelty(t *testing.T) {
	first := Candidate{ItemID: uuid.New(), MediaID: uuid.New(), AutoTags: []string{"cat"}}
	repeat := Candidate{ItemID: uuid.New(), MediaID: uuid.New(), AutoTags: []string{"cat"}}
	fresh := Candidate{ItemID: uuid.New(), MediaID: uuid.New(), AutoTags: []string{"dog"}}

	ranked := Diversity([]Candidate{first, repeat, fresh}, 0)
	byItem := map[uuid.UUID]float64{}
	for _, r := range ranked {
		byItem[r.ItemID] = r.Score
	}
	require.Equal(t, 1.0, byItem[first.ItemID])
	require.Equal(t, 0.0, byItem[repeat.ItemID])
	require.Equal(t, 1.0, byItem[fresh.ItemID])
}

func TestEntropy_Cases(t *testing.T) {
	noTagsNoCaption := Candidate{ItemID: uuid.New(), MediaID: uuid.New()}
	captionOnly := Candidate{ItemID: uuid.New(), MediaID: uuid.New(), AutoCaption: "a photo"}
	multiTags := Candidate{ItemID: uuid.New(), MediaID: uuid.New(), AutoTags: []string{"a", "b", "c"}}

	ranked := Entropy([]Candidate{noTagsNoCaption, captionOnly, multiTags}, 0)
	byItem := map[uuid.UUID]float64{}
	for _, r := range ranked {
		byItem[r.ItemID] = r.Score
	}
	require.Equal(t, 1.0, byItem[noTagsNoCaption.ItemID])
	require.Equal(t, 0.5, byItem[captionOnly.ItemID])
	require.Greater(t, byItem[multiTags.ItemID], 1.0)
}

func TestRandom_RespectsLimit(t *testing.T) {
	candidates := make([]Candidate, 10)
	for i := range candidates {
		candidates[i] = Candidate{ItemID: uuid.New(), MediaID: uuid.New()}
	}
	ranked := Random(candidates, 3, rand.New(rand.NewSource(1)))
	require.Len(t, ranked, 3)
}
