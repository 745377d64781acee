package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"DriveFM/core/events"
	"DriveFM/db"
	"DriveFM/model"
)

// SongRepository defines the interface for song record operations.
//
// Upsert carries the reconciliation rule of the whole library: a candidate
// whose LastEditedUtc is not strictly greater than the stored record's is a
// no-op. That makes re-ingestion idempotent and concurrent upserts to the
// same id commute regardless of completion order.
type SongRepository interface {
	GetByID(id string) (*model.Song, error)
	Upsert(song *model.Song) (bool, error)
	Delete(id string) error
	All() ([]*model.Song, error)
	SearchByTitle(query string) ([]*model.Song, error)
	AllSortedByAlbum() ([]*model.Song, error)
}

// mysqlSongRepository implements SongRepository for MySQL.
type mysqlSongRepository struct {
	DB  *sql.DB
	bus *events.Bus
}

// NewMySQLSongRepository creates a new instance of mysqlSongRepository.
// Applied mutations are published on the bus so derived views (cover cache,
// browser tables) refresh reactively.
func NewMySQLSongRepository(bus *events.Bus) SongRepository {
	return &mysqlSongRepository{DB: db.DB, bus: bus}
}

const songColumns = `id, title, artist, album, genre, year, last_edited_utc, audio_path, cover_path, cover_mime, created_at, updated_at`

func scanSong(row interface{ Scan(...interface{}) error }) (*model.Song, error) {
	song := &model.Song{}
	var artist, album, genre, year, coverPath, coverMime sql.NullString
	err := row.Scan(&song.ID, &song.Title, &artist, &album, &genre, &year,
		&song.LastEditedUtc, &song.AudioPath, &coverPath, &coverMime,
		&song.CreatedAt, &song.UpdatedAt)
	if err != nil {
		return nil, err
	}
	song.Artist = artist.String
	song.Album = album.String
	song.Genre = genre.String
	song.Year = year.String
	song.CoverPath = coverPath.String
	song.CoverMime = coverMime.String
	return song, nil
}

// GetByID retrieves a song by its drive file id.
func (r *mysqlSongRepository) GetByID(id string) (*model.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs WHERE id = ?`
	song, err := scanSong(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Song not found
		}
		return nil, fmt.Errorf("failed to scan song by ID %s: %w", id, err)
	}
	return song, nil
}

// Upsert inserts or updates a song under the last-writer-wins rule and
// reports whether the candidate was applied. A skip is not an error.
func (r *mysqlSongRepository) Upsert(song *model.Song) (bool, error) {
	existing, err := r.GetByID(song.ID)
	if err != nil {
		return false, err
	}

	now := time.Now()
	if existing == nil {
		query := `INSERT INTO songs (id, title, artist, album, genre, year, last_edited_utc, audio_path, cover_path, cover_mime, created_at, updated_at)
		           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		_, err := r.DB.Exec(query, song.ID, song.Title, song.Artist, song.Album,
			song.Genre, song.Year, song.LastEditedUtc, song.AudioPath,
			song.CoverPath, song.CoverMime, now, now)
		if err != nil {
			return false, fmt.Errorf("failed to insert song %s: %w", song.ID, err)
		}
		r.publishChange(song.ID)
		return true, nil
	}

	if existing.LastEditedUtc >= song.LastEditedUtc {
		return false, nil // stored record is as new or newer, no-op
	}

	// The guard in the WHERE clause keeps the rule atomic even if two
	// upserts for the same id race between the read above and here.
	query := `UPDATE songs SET title = ?, artist = ?, album = ?, genre = ?, year = ?,
	           last_edited_utc = ?, audio_path = ?, cover_path = ?, cover_mime = ?, updated_at = ?
	           WHERE id = ? AND last_edited_utc < ?`
	res, err := r.DB.Exec(query, song.Title, song.Artist, song.Album, song.Genre,
		song.Year, song.LastEditedUtc, song.AudioPath, song.CoverPath,
		song.CoverMime, now, song.ID, song.LastEditedUtc)
	if err != nil {
		return false, fmt.Errorf("failed to update song %s: %w", song.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows for song %s: %w", song.ID, err)
	}
	if affected == 0 {
		return false, nil // lost the race to a newer writer
	}
	r.publishChange(song.ID)
	return true, nil
}

// Delete removes a song record.
func (r *mysqlSongRepository) Delete(id string) error {
	res, err := r.DB.Exec(`DELETE FROM songs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete song %s: %w", id, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected > 0 {
		r.publishChange(id)
	}
	return nil
}

// All retrieves every song record.
func (r *mysqlSongRepository) All() ([]*model.Song, error) {
	return r.querySongs(`SELECT ` + songColumns + ` FROM songs`)
}

// SearchByTitle retrieves songs whose title contains the given substring.
// The term is matched literally: LIKE metacharacters in it are escaped.
func (r *mysqlSongRepository) SearchByTitle(query string) ([]*model.Song, error) {
	return r.querySongs(`SELECT `+songColumns+` FROM songs WHERE title LIKE CONCAT('%', ?, '%') ORDER BY title`, escapeLike(query))
}

// escapeLike quotes %, _ and the escape character itself so a search term
// cannot act as a wildcard pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// AllSortedByAlbum retrieves every song ordered by album, then title.
func (r *mysqlSongRepository) AllSortedByAlbum() ([]*model.Song, error) {
	return r.querySongs(`SELECT ` + songColumns + ` FROM songs ORDER BY album, title`)
}

func (r *mysqlSongRepository) querySongs(query string, args ...interface{}) ([]*model.Song, error) {
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()

	songs := make([]*model.Song, 0)
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan song row: %w", err)
		}
		songs = append(songs, song)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during song rows iteration: %w", err)
	}
	return songs, nil
}

func (r *mysqlSongRepository) publishChange(songID string) {
	if r.bus != nil {
		r.bus.Publish(events.Event{Type: events.SongsChanged, SongID: songID})
	}
}
