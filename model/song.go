package model

import "time"

// Song represents one audio file imported from the user's cloud drive.
// The primary key is the drive file id, so re-importing the same document
// always targets the same row. The audio payload and the embedded cover
// image live in object storage; the record only carries their object keys.
type Song struct {
	ID            string    `json:"id"`            // drive file id, primary key
	Title         string    `json:"title"`         // never empty, falls back to the filename stem
	Artist        string    `json:"artist,omitempty"`
	Album         string    `json:"album,omitempty"`
	Genre         string    `json:"genre,omitempty"`
	Year          string    `json:"year,omitempty"`
	LastEditedUtc int64     `json:"lastEditedUtc"` // epoch milliseconds, version marker from the drive
	AudioPath     string    `json:"-"`             // object key of the audio payload
	CoverPath     string    `json:"coverPath,omitempty"` // object key of the embedded cover, empty if none
	CoverMime     string    `json:"coverMime,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// HasCover reports whether the song carries an embedded cover image.
func (s *Song) HasCover() bool {
	return s.CoverPath != ""
}

// Attribute returns the value of a rule attribute on this song and whether
// the song has that attribute at all. Dispatch is an explicit switch so a
// typo in a stored rule can never silently match some unrelated field.
func (s *Song) Attribute(attr RuleAttribute) (string, bool) {
	var v string
	switch attr {
	case AttrTitle:
		v = s.Title
	case AttrArtist:
		v = s.Artist
	case AttrAlbum:
		v = s.Album
	case AttrGenre:
		v = s.Genre
	default:
		return "", false
	}
	if v == "" {
		return "", false
	}
	return v, true
}
