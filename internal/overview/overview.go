// Package overview builds the experimenter's schedule table and calendar.
package overview

import (
	"time"

	"github.com/wolfman30/experiment-scheduler/internal/dates"
	"github.com/wolfman30/experiment-scheduler/internal/schedules"
)

// KeySession is one row of the schedule table. Nil dates mean the participant has none.
type KeySession struct {
	ParticipantID string       `json:"participant_id"`
	FirstSession  *dates.Date  `json:"first_session"`
	LastSession   *dates.Date  `json:"last_session"`
	LastBackup    *dates.Date  `json:"last_backup"`
	Sessions      []dates.Date `json:"session_dates"`
	Backups       []dates.Date `json:"backup_dates"`
}

// KeySessions summarises each record in the order given.
func KeySessions(records []schedules.Record) []KeySession {
	rows := make([]KeySession, 0, len(records))
	for _, rec := range records {
		sessions := dates.Sorted(rec.SessionDates)
		backups := dates.Sorted(rec.BackupDates)
		row := KeySession{ParticipantID: rec.ParticipantID, Sessions: sessions, Backups: backups}
		if n := len(sessions); n > 0 {
			row.FirstSession = &sessions[0]
			row.LastSession = &sessions[n-1]
		}
		if n := len(backups); n > 0 {
			row.LastBackup = &backups[n-1]
		}
		rows = append(rows, row)
	}
	return rows
}

// EventKind classifies a calendar entry.
type EventKind string

const (
	EventFirst      EventKind = "first"
	EventSession    EventKind = "session"
	EventLast       EventKind = "last"
	EventBackup     EventKind = "backup"
	EventLastBackup EventKind = "last_backup"
)

// Event is one participant's appointment on a calendar day.
type Event struct {
	ParticipantID string    `json:"participant_id"`
	Kind          EventKind `json:"kind"`
}

// Day lists the events of one calendar day.
type Day struct {
	Date   dates.Date `json:"date"`
	Events []Event    `json:"events"`
}

// Month returns every day of the month with its events, in record order per day.
func Month(records []schedules.Record, year int, month time.Month) []Day {
	first := dates.New(year, month, 1)
	last := dates.New(year, month+1, 1).AddDays(-1)
	days := dates.Span(first, last)

	byDate := make(map[dates.Date][]Event, len(days))
	add := func(d dates.Date, id string, kind EventKind) {
		if d.Before(first) || d.After(last) {
			return
		}
		byDate[d] = append(byDate[d], Event{ParticipantID: id, Kind: kind})
	}

	for _, rec := range records {
		id := rec.ParticipantID
		if id == "" {
			id = "Unknown"
		}
		sessions := dates.Sorted(rec.SessionDates)
		for i, d := range sessions {
			switch {
			case i == 0:
				add(d, id, EventFirst)
			case i == len(sessions)-1:
				add(d, id, EventLast)
			default:
				add(d, id, EventSession)
			}
		}
		backups := dates.Sorted(rec.BackupDates)
		for i, d := range backups {
			if i == len(backups)-1 {
				add(d, id, EventLastBackup)
			} else {
				add(d, id, EventBackup)
			}
		}
	}

	out := make([]Day, len(days))
	for i, d := range days {
		events := byDate[d]
		if events == nil {
			events = []Event{}
		}
		out[i] = Day{Date: d, Events: events}
	}
	return out
}
