package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/ELITR/alignmeet/internal/annotation"
	"github.com/ELITR/alignmeet/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS meetings (
	id TEXT PRIMARY KEY,
	root TEXT NOT NULL,
	transcript TEXT NOT NULL,
	minutes TEXT NOT NULL,
	annotator TEXT NOT NULL DEFAULT '',
	exportedAt REAL NOT NULL,
	actCount INTEGER NOT NULL,
	linkedCount INTEGER NOT NULL,
	tentativeCount INTEGER NOT NULL,
	adequacy REAL NOT NULL,
	grammaticality REAL NOT NULL,
	fluency REAL NOT NULL,
	relevance REAL NOT NULL,
	UNIQUE(root, transcript, minutes)
);

CREATE TABLE IF NOT EXISTS minutes (
	meetingId TEXT NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	text TEXT NOT NULL,
	linked INTEGER NOT NULL,
	adequacy REAL,
	grammaticality REAL,
	fluency REAL,
	relevance REAL,
	PRIMARY KEY(meetingId, position)
);

CREATE TABLE IF NOT EXISTS dialog_acts (
	meetingId TEXT NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	speaker TEXT NOT NULL,
	text TEXT NOT NULL,
	startedAt REAL,
	endedAt REAL,
	minutePosition INTEGER,
	final INTEGER NOT NULL,
	problem TEXT NOT NULL DEFAULT '',
	PRIMARY KEY(meetingId, position)
);
`

// Store is the export database.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string, log zerolog.Logger) (*Store, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps an in-memory database alive and serialises writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, log: log.With().Str("component", "db").Logger()}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ExportDocument writes the open meeting of doc, replacing an earlier export
// of the same transcript/minutes pair. It returns the new meeting id.
func (s *Store) ExportDocument(doc *annotation.Document, annotator string) (string, error) {
	if doc.TranscriptFile() == "" || doc.MinutesFile() == "" {
		return "", annotation.ErrNoFiles
	}
	acts := doc.Acts()
	minutes := doc.Minutes()
	ev := doc.Evaluation()

	linkedPerMinute := make(map[*model.Minute]int)
	linked := 0
	for _, da := range acts {
		if da.Minute != nil {
			linked++
			linkedPerMinute[da.Minute]++
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin export: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM meetings WHERE root = ? AND transcript = ? AND minutes = ?`,
		doc.Root(), doc.TranscriptFile(), doc.MinutesFile()); err != nil {
		return "", fmt.Errorf("delete previous export: %w", err)
	}

	id := uuid.NewString()
	sc := ev.Document
	if _, err := tx.Exec(`
		INSERT INTO meetings (id, root, transcript, minutes, annotator, exportedAt,
			actCount, linkedCount, tentativeCount, adequacy, grammaticality, fluency, relevance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, doc.Root(), doc.TranscriptFile(), doc.MinutesFile(), annotator, unixFromTime(time.Now()),
		len(acts), linked, doc.Tentative(), sc.Adequacy, sc.Grammaticality, sc.Fluency, sc.Relevance); err != nil {
		return "", fmt.Errorf("insert meeting: %w", err)
	}

	for i, m := range minutes {
		var a, g, f, r sql.NullFloat64
		if ms := ev.Minutes[i]; ms != nil {
			a, g, f, r = nullFloat(ms.Adequacy), nullFloat(ms.Grammaticality), nullFloat(ms.Fluency), nullFloat(ms.Relevance)
		}
		if _, err := tx.Exec(`
			INSERT INTO minutes (meetingId, position, text, linked, adequacy, grammaticality, fluency, relevance)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, id, i, m.Text, linkedPerMinute[m], a, g, f, r); err != nil {
			return "", fmt.Errorf("insert minute %d: %w", i, err)
		}
	}

	for i, da := range acts {
		var start, end sql.NullFloat64
		if da.TimeValid() {
			start, end = nullFloat(da.Start), nullFloat(da.End)
		}
		var minute sql.NullInt64
		if p := doc.Position(da.Minute); p >= 0 {
			minute = sql.NullInt64{Int64: int64(p), Valid: true}
		}
		if _, err := tx.Exec(`
			INSERT INTO dialog_acts (meetingId, position, speaker, text, startedAt, endedAt, minutePosition, final, problem)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, id, i, da.Speaker, da.Text, start, end, minute, da.Final && da.Minute != nil, da.Problem.Label()); err != nil {
			return "", fmt.Errorf("insert dialog act %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit export: %w", err)
	}
	s.log.Info().Str("meeting", id).Str("transcript", doc.TranscriptFile()).Int("acts", len(acts)).Msg("exported")
	return id, nil
}

// Meetings returns all exported meetings, most recent first.
func (s *Store) Meetings() ([]Meeting, error) {
	rows, err := s.db.Query(`
		SELECT id, root, transcript, minutes, annotator, exportedAt, actCount, linkedCount,
			tentativeCount, adequacy, grammaticality, fluency, relevance
		FROM meetings
		ORDER BY exportedAt DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query meetings: %w", err)
	}
	defer rows.Close()

	var meetings []Meeting
	for rows.Next() {
		var m Meeting
		var exportedAt float64
		if err := rows.Scan(&m.ID, &m.Root, &m.Transcript, &m.Minutes, &m.Annotator, &exportedAt,
			&m.ActCount, &m.LinkedCount, &m.Tentative, &m.Adequacy, &m.Grammaticality, &m.Fluency, &m.Relevance); err != nil {
			return nil, fmt.Errorf("scan meeting: %w", err)
		}
		m.ExportedAt = timeFromUnix(exportedAt)
		meetings = append(meetings, m)
	}
	return meetings, rows.Err()
}

// Meeting returns one meeting, or nil if it does not exist.
func (s *Store) Meeting(id string) (*Meeting, error) {
	row := s.db.QueryRow(`
		SELECT id, root, transcript, minutes, annotator, exportedAt, actCount, linkedCount,
			tentativeCount, adequacy, grammaticality, fluency, relevance
		FROM meetings
		WHERE id = ?
	`, id)
	var m Meeting
	var exportedAt float64
	if err := row.Scan(&m.ID, &m.Root, &m.Transcript, &m.Minutes, &m.Annotator, &exportedAt,
		&m.ActCount, &m.LinkedCount, &m.Tentative, &m.Adequacy, &m.Grammaticality, &m.Fluency, &m.Relevance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan meeting: %w", err)
	}
	m.ExportedAt = timeFromUnix(exportedAt)
	return &m, nil
}

// MinutesForMeeting returns the minutes of a meeting in outline order.
func (s *Store) MinutesForMeeting(meetingID string) ([]MinuteRecord, error) {
	rows, err := s.db.Query(`
		SELECT meetingId, position, text, linked, adequacy, grammaticality, fluency, relevance
		FROM minutes
		WHERE meetingId = ?
		ORDER BY position ASC
	`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("query minutes: %w", err)
	}
	defer rows.Close()

	var out []MinuteRecord
	for rows.Next() {
		var m MinuteRecord
		var a, g, f, r sql.NullFloat64
		if err := rows.Scan(&m.MeetingID, &m.Position, &m.Text, &m.Linked, &a, &g, &f, &r); err != nil {
			return nil, fmt.Errorf("scan minute: %w", err)
		}
		if a.Valid {
			m.Scores = &[4]float64{a.Float64, g.Float64, f.Float64, r.Float64}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// LinksForMeeting returns every dialog act of a meeting in transcript order.
func (s *Store) LinksForMeeting(meetingID string) ([]DialogActRecord, error) {
	rows, err := s.db.Query(`
		SELECT meetingId, position, speaker, text, startedAt, endedAt, minutePosition, final, problem
		FROM dialog_acts
		WHERE meetingId = ?
		ORDER BY position ASC
	`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("query dialog acts: %w", err)
	}
	defer rows.Close()

	var out []DialogActRecord
	for rows.Next() {
		var d DialogActRecord
		var start, end sql.NullFloat64
		var minute sql.NullInt64
		if err := rows.Scan(&d.MeetingID, &d.Position, &d.Speaker, &d.Text, &start, &end,
			&minute, &d.Final, &d.Problem); err != nil {
			return nil, fmt.Errorf("scan dialog act: %w", err)
		}
		if start.Valid {
			d.Start = &start.Float64
		}
		if end.Valid {
			d.End = &end.Float64
		}
		if minute.Valid {
			p := int(minute.Int64)
			d.Minute = &p
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeleteMeeting removes a meeting and everything exported with it.
func (s *Store) DeleteMeeting(id string) error {
	if _, err := s.db.Exec(`DELETE FROM meetings WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete meeting: %w", err)
	}
	return nil
}

func nullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

func unixFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
