// Package history keeps a log of every time committed from the console.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/jrockway/console-clock/control/console"
	"github.com/jrockway/console-clock/control/rtc"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/net/trace"
)

const initDatabase = `
CREATE TABLE IF NOT EXISTS commits (date datetime not null, requested integer not null, committed integer not null, clamped boolean not null, error text);
`

// Entry is one row of the log.
type Entry struct {
	At        time.Time
	Requested rtc.Time
	Committed rtc.Time
	Clamped   bool
	Error     string
}

type DB struct {
	*sql.DB
	events trace.EventLog
}

// OpenDatabase opens (creating if necessary) the log at filename.  ":memory:" works for tests.
func OpenDatabase(filename string) (*DB, error) {
	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filename, err)
	}
	// Every connection to :memory: is a different database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(initDatabase); err != nil {
		db.Close()
		return nil, fmt.Errorf("init %s: %w", filename, err)
	}
	return &DB{DB: db, events: trace.NewEventLog("history", filename)}, nil
}

// Close closes the database.
func (db *DB) Close() error {
	db.events.Finish()
	return db.DB.Close()
}

// RecordCommit appends ev to the log.
func (db *DB) RecordCommit(ev console.CommitEvent) error {
	s, err := db.Prepare("insert into commits values(?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer s.Close()
	var msg sql.NullString
	if ev.Err != nil {
		msg = sql.NullString{String: ev.Err.Error(), Valid: true}
	}
	if _, err := s.Exec(ev.At, uint32(ev.Requested), uint32(ev.Committed), ev.Clamped, msg); err != nil {
		return err
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (db *DB) Recent(n int) ([]Entry, error) {
	rows, err := db.Query("select date, requested, committed, clamped, error from commits order by date desc, rowid desc limit ?", n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Entry
	for rows.Next() {
		var e Entry
		var requested, committed uint32
		var msg sql.NullString
		if err := rows.Scan(&e.At, &requested, &committed, &e.Clamped, &msg); err != nil {
			return nil, err
		}
		e.Requested, e.Committed, e.Error = rtc.Time(requested), rtc.Time(committed), msg.String
		result = append(result, e)
	}
	return result, rows.Err()
}

// Count returns the number of commits logged.
func (db *DB) Count() (int, error) {
	return db.single("select count(1) from commits")
}

// Run records every event from ch until the context is cancelled.  Failures are logged, not
// returned, so that a full disk cannot stop the clock.
func (db *DB) Run(ctx context.Context, ch <-chan console.CommitEvent) error {
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("recording commits: %w", ctx.Err())
		case ev := <-ch:
			if err := db.RecordCommit(ev); err != nil {
				db.events.Errorf("record commit of %v: %v", ev.Committed, err)
				log.Printf("record commit of %v: %v", ev.Committed, err)
				continue
			}
			db.events.Printf("recorded commit of %v", ev.Committed)
		}
	}
}

func (db *DB) single(query string, args ...interface{}) (int, error) {
	s, err := db.Prepare(query)
	if err != nil {
		return 0, err
	}
	defer s.Close()

	rows, err := s.Query(args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var result int
	var found bool
	for rows.Next() {
		if found {
			return 0, fmt.Errorf("%q returned more than one row", query)
		}
		if err := rows.Scan(&result); err != nil {
			return 0, err
		}
		found = true
	}
	return result, nil
}
