package main

import (
	_ "embed"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/jrockway/console-clock/control/console"
	"github.com/jrockway/console-clock/control/history"
	"github.com/jrockway/console-clock/control/rtc"
	"github.com/jrockway/console-clock/control/segment"
)

var (
	//go:embed index.html.tmpl
	indexHTML string
	funcMap   = template.FuncMap{
		"hex":      formatHex,
		"unixtime": formatUnixTime,
		"frame":    formatFrame,
		"digits":   formatDigits,
	}
	index = template.Must(template.New("index").Funcs(funcMap).Parse(indexHTML))
)

// Status is everything the status page shows.
type Status struct {
	Now        time.Time
	Console    console.Status
	Word       segment.Word
	Commits    []history.Entry
	Total      int
	HistoryErr string
}

type consoleStatus interface {
	Status() console.Status
}

type displayWord interface {
	Word() segment.Word
}

type commitLog interface {
	Recent(n int) ([]history.Entry, error)
	Count() (int, error)
}

// statusPage serves the HTML status page.  history may be nil.
type statusPage struct {
	console consoleStatus
	display displayWord
	history commitLog
}

func (p *statusPage) status() Status {
	st := Status{
		Now:     time.Now(),
		Console: p.console.Status(),
		Word:    p.display.Word(),
	}
	if p.history != nil {
		commits, err := p.history.Recent(10)
		if err != nil {
			st.HistoryErr = err.Error()
		}
		st.Commits = commits
		total, err := p.history.Count()
		if err != nil {
			st.HistoryErr = err.Error()
		}
		st.Total = total
	}
	return st
}

func (p *statusPage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("content-type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := index.Execute(w, p.status()); err != nil {
		log.Printf("execute template: %v", err)
	}
}

// formatHex prints the raw bits of a word or packed time.  Times are converted first so that %x does
// not pick up their String method.
func formatHex(x interface{}) string {
	switch v := x.(type) {
	case rtc.Time:
		return fmt.Sprintf("0x%06x", uint32(v))
	case segment.Word:
		return fmt.Sprintf("0x%08x", uint32(v))
	}
	return fmt.Sprintf("%#x", x)
}

func formatUnixTime(t time.Time) string { return t.In(time.UTC).Format(time.UnixDate) }

func formatFrame(s string) string { return fmt.Sprintf("%q", s) }

// formatDigits shows what each position of the display decodes to, with ? for anything that isn't a
// digit.
func formatDigits(w segment.Word) string {
	var out []byte
	for p := segment.Hundreds; p <= segment.Units; p++ {
		if d, ok := w.Digit(p); ok {
			out = append(out, '0'+d)
		} else {
			out = append(out, '?')
		}
	}
	return fmt.Sprintf("%s, bar %d", out, w.Level())
}
