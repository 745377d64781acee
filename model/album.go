package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidAlbum marks validation failures on album input, so handlers
// can tell caller mistakes from storage faults.
var ErrInvalidAlbum = errors.New("invalid album")

// RuleAttribute names the song field a smart playlist rule inspects.
type RuleAttribute string

const (
	AttrTitle  RuleAttribute = "Title"
	AttrArtist RuleAttribute = "Artist"
	AttrAlbum  RuleAttribute = "Album"
	AttrGenre  RuleAttribute = "Genre"
)

// RuleComparison is the operator a rule applies to the attribute value.
type RuleComparison string

const (
	CompIs             RuleComparison = "is"
	CompIsNot          RuleComparison = "is-not"
	CompIncludes       RuleComparison = "includes"
	CompDoesNotInclude RuleComparison = "does-not-include"
)

// Rule is one declarative membership condition of a smart playlist.
type Rule struct {
	Attribute  RuleAttribute  `json:"attribute"`
	Comparison RuleComparison `json:"comparison"`
	Data       string         `json:"data"`
}

// Validate checks that both enums carry known values.
func (r Rule) Validate() error {
	switch r.Attribute {
	case AttrTitle, AttrArtist, AttrAlbum, AttrGenre:
	default:
		return fmt.Errorf("%w: unknown rule attribute %q", ErrInvalidAlbum, r.Attribute)
	}
	switch r.Comparison {
	case CompIs, CompIsNot, CompIncludes, CompDoesNotInclude:
	default:
		return fmt.Errorf("%w: unknown rule comparison %q", ErrInvalidAlbum, r.Comparison)
	}
	return nil
}

// Rules is an ordered rule list, stored as a JSON column.
type Rules []Rule

// Value implements driver.Valuer for GORM.
func (r Rules) Value() (driver.Value, error) {
	if r == nil {
		r = Rules{}
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner for GORM.
func (r *Rules) Scan(src interface{}) error {
	if src == nil {
		*r = Rules{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Rules", src)
	}
	return json.Unmarshal(data, r)
}

// Album is a user-defined smart playlist: a named rule set evaluated
// against the live song collection. It stores no song ids of its own.
type Album struct {
	ID             int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name           string    `json:"name" gorm:"uniqueIndex;size:255;not null"`
	FollowAllRules bool      `json:"followAllRules"` // true = every rule must hold, false = any rule suffices
	Rules          Rules     `json:"rules" gorm:"type:json"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// TableName keeps the GORM table name in line with the rest of the schema.
func (Album) TableName() string {
	return "albums"
}

// Validate rejects empty names and malformed rules before any mutation.
func (a *Album) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidAlbum)
	}
	for _, rule := range a.Rules {
		if err := rule.Validate(); err != nil {
			return err
		}
	}
	return nil
}
