package smartlist

import (
	"testing"

	"DriveFM/model"

	"github.com/stretchr/testify/assert"
)

func rockSong() *model.Song {
	return &model.Song{ID: "s1", Title: "Thunder Road", Artist: "Bruce", Album: "Born to Run", Genre: "Rock"}
}

func albumWith(all bool, rules ...model.Rule) *model.Album {
	return &model.Album{Name: "test", FollowAllRules: all, Rules: rules}
}

func TestMatchesAndModeNeedsEveryRule(t *testing.T) {
	song := rockSong()

	album := albumWith(true,
		model.Rule{Attribute: model.AttrGenre, Comparison: model.CompIs, Data: "Rock"},
		model.Rule{Attribute: model.AttrArtist, Comparison: model.CompIncludes, Data: "Bru"},
	)
	assert.True(t, Matches(album, song))

	album.Rules[1].Data = "Miles"
	assert.False(t, Matches(album, song), "one failed rule rejects in AND mode")
}

func TestMatchesOrModeNeedsAnyRule(t *testing.T) {
	song := rockSong()

	album := albumWith(false,
		model.Rule{Attribute: model.AttrGenre, Comparison: model.CompIs, Data: "Jazz"},
		model.Rule{Attribute: model.AttrArtist, Comparison: model.CompIs, Data: "Bruce"},
	)
	assert.True(t, Matches(album, song), "one passing rule suffices in OR mode")

	album.Rules[1].Data = "Miles"
	assert.False(t, Matches(album, song))
}

func TestMatchesMissingAttributeRejectsInBothModes(t *testing.T) {
	song := &model.Song{ID: "s1", Title: "Untitled"} // no genre at all

	genreRule := model.Rule{Attribute: model.AttrGenre, Comparison: model.CompIs, Data: "Rock"}
	titleRule := model.Rule{Attribute: model.AttrTitle, Comparison: model.CompIs, Data: "Untitled"}

	assert.False(t, Matches(albumWith(true, genreRule), song))
	// Even with a passing sibling rule, a missing attribute rejects in OR mode.
	assert.False(t, Matches(albumWith(false, titleRule, genreRule), song))
	assert.False(t, Matches(albumWith(false, genreRule, titleRule), song))
}

func TestMatchesDoesNotIncludeOnMissingAttribute(t *testing.T) {
	// Absence is not treated as "does not include": the song is rejected.
	song := &model.Song{ID: "s1", Title: "Untitled"}
	album := albumWith(true, model.Rule{Attribute: model.AttrGenre, Comparison: model.CompDoesNotInclude, Data: "Rock"})
	assert.False(t, Matches(album, song))
}

func TestMatchesEmptyRuleAsymmetry(t *testing.T) {
	song := rockSong()

	assert.True(t, Matches(albumWith(true), song), "empty AND matches everything")
	assert.False(t, Matches(albumWith(false), song), "empty OR matches nothing")
}

func TestFilterPreservesOrderAndNilScope(t *testing.T) {
	songs := []*model.Song{
		{ID: "a", Title: "A", Genre: "Rock"},
		{ID: "b", Title: "B", Genre: "Jazz"},
		{ID: "c", Title: "C", Genre: "Rock"},
	}

	assert.Equal(t, songs, Filter(nil, songs), "nil album means no scope")

	album := albumWith(true, model.Rule{Attribute: model.AttrGenre, Comparison: model.CompIs, Data: "Rock"})
	got := Filter(album, songs)
	assert.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
}

func TestCompareOperators(t *testing.T) {
	cases := []struct {
		comp  model.RuleComparison
		value string
		data  string
		want  bool
	}{
		{model.CompIs, "Rock", "Rock", true},
		{model.CompIs, "Rock", "rock", false}, // comparisons are case sensitive
		{model.CompIsNot, "Rock", "Jazz", true},
		{model.CompIsNot, "Rock", "Rock", false},
		{model.CompIncludes, "Progressive Rock", "Rock", true},
		{model.CompIncludes, "Jazz", "Rock", false},
		{model.CompDoesNotInclude, "Jazz", "Rock", true},
		{model.CompDoesNotInclude, "Progressive Rock", "Rock", false},
	}

	for _, tc := range cases {
		song := &model.Song{ID: "s", Title: "t", Genre: tc.value}
		album := albumWith(true, model.Rule{Attribute: model.AttrGenre, Comparison: tc.comp, Data: tc.data})
		assert.Equal(t, tc.want, Matches(album, song), "%s %q vs %q", tc.comp, tc.value, tc.data)
	}
}
