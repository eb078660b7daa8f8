// Package db stores exported meeting annotations in SQLite so they can be
// queried across meetings.
package db

import "time"

// Meeting is one exported transcript/minutes pair.
type Meeting struct {
	ID             string
	Root           string
	Transcript     string
	Minutes        string
	Annotator      string
	ExportedAt     time.Time
	ActCount       int
	LinkedCount    int
	Tentative      int
	Adequacy       float64
	Grammaticality float64
	Fluency        float64
	Relevance      float64
}

// Coverage is the fraction of dialog acts linked to a minute.
func (m Meeting) Coverage() float64 {
	if m.ActCount == 0 {
		return 0
	}
	return float64(m.LinkedCount) / float64(m.ActCount)
}

// MinuteRecord is one minute of an exported meeting. Scores are nil when no
// dialog act links to the minute.
type MinuteRecord struct {
	MeetingID string
	Position  int
	Text      string
	Linked    int
	Scores    *[4]float64
}

// DialogActRecord is one transcript line and its annotation.
type DialogActRecord struct {
	MeetingID string
	Position  int
	Speaker   string
	Text      string
	Start     *float64
	End       *float64
	// Minute is the 0-based position of the linked minute, nil if unlinked.
	Minute  *int
	Final   bool
	Problem string
}
