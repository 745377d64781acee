// Package smartlist evaluates smart playlist rule sets against the live
// song collection.
package smartlist

import (
	"strings"

	"DriveFM/model"
)

// Filter returns the songs matching the album's rule set, preserving the
// input order. A nil album means no scope: every song matches.
func Filter(album *model.Album, songs []*model.Song) []*model.Song {
	if album == nil {
		return songs
	}

	matched := make([]*model.Song, 0, len(songs))
	for _, song := range songs {
		if Matches(album, song) {
			matched = append(matched, song)
		}
	}
	return matched
}

// Matches evaluates one song against an album's rules.
//
// A rule whose attribute is absent on the song rejects the song outright,
// in both modes, the moment that rule is reached. With an empty rule list
// AND mode matches every song while OR mode matches none; that asymmetry
// is the standard empty conjunction/disjunction convention and callers
// depend on "match all" albums being expressible as AND with no rules.
func Matches(album *model.Album, song *model.Song) bool {
	if album.FollowAllRules {
		for _, rule := range album.Rules {
			value, ok := song.Attribute(rule.Attribute)
			if !ok {
				return false
			}
			if !compare(rule.Comparison, value, rule.Data) {
				return false
			}
		}
		return true
	}

	for _, rule := range album.Rules {
		value, ok := song.Attribute(rule.Attribute)
		if !ok {
			return false
		}
		if compare(rule.Comparison, value, rule.Data) {
			return true
		}
	}
	return false
}

func compare(comp model.RuleComparison, value, data string) bool {
	switch comp {
	case model.CompIs:
		return value == data
	case model.CompIsNot:
		return value != data
	case model.CompIncludes:
		return strings.Contains(value, data)
	case model.CompDoesNotInclude:
		return !strings.Contains(value, data)
	default:
		return false
	}
}
