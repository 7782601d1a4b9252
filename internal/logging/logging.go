// Package logging provides a priority-leveled log sink matching the
// six syslog severities llmnrd's error handling design requires
// (CRIT, ERR, WARNING, NOTICE, INFO, DEBUG). The systemd journal is
// the primary backend; when the journal is unavailable (non-systemd
// hosts, tests, container images without /run/systemd/journal) the
// logger falls back to writing prefixed lines to stderr.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/coreos/go-systemd/v22/journal"
)

// Logger is the sink every other package logs through.
type Logger interface {
	Critf(format string, args ...interface{})
	Errf(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Noticef(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// journalLogger logs to the systemd journal.
type journalLogger struct {
	vars map[string]string
}

// New returns a Logger backed by the systemd journal when available,
// otherwise a stderr fallback. syslogIdentifier is attached to every
// entry as SYSLOG_IDENTIFIER.
func New(syslogIdentifier string) Logger {
	if journal.Enabled() {
		return &journalLogger{vars: map[string]string{"SYSLOG_IDENTIFIER": syslogIdentifier}}
	}
	return &stderrLogger{w: os.Stderr, identifier: syslogIdentifier}
}

func (l *journalLogger) log(p journal.Priority, format string, args ...interface{}) {
	_ = journal.Send(fmt.Sprintf(format, args...), p, l.vars)
}

func (l *journalLogger) Critf(format string, args ...interface{})    { l.log(journal.PriCrit, format, args...) }
func (l *journalLogger) Errf(format string, args ...interface{})     { l.log(journal.PriErr, format, args...) }
func (l *journalLogger) Warningf(format string, args ...interface{}) { l.log(journal.PriWarning, format, args...) }
func (l *journalLogger) Noticef(format string, args ...interface{})  { l.log(journal.PriNotice, format, args...) }
func (l *journalLogger) Infof(format string, args ...interface{})    { l.log(journal.PriInfo, format, args...) }
func (l *journalLogger) Debugf(format string, args ...interface{})   { l.log(journal.PriDebug, format, args...) }

// stderrLogger is the fallback used when the journal socket is not
// present.
type stderrLogger struct {
	w          io.Writer
	identifier string
}

func (l *stderrLogger) write(level string, format string, args ...interface{}) {
	fmt.Fprintf(l.w, "%s: %s: %s\n", l.identifier, level, fmt.Sprintf(format, args...))
}

func (l *stderrLogger) Critf(format string, args ...interface{})    { l.write("CRIT", format, args...) }
func (l *stderrLogger) Errf(format string, args ...interface{})     { l.write("ERR", format, args...) }
func (l *stderrLogger) Warningf(format string, args ...interface{}) { l.write("WARNING", format, args...) }
func (l *stderrLogger) Noticef(format string, args ...interface{})  { l.write("NOTICE", format, args...) }
func (l *stderrLogger) Infof(format string, args ...interface{})    { l.write("INFO", format, args...) }
func (l *stderrLogger) Debugf(format string, args ...interface{})   { l.write("DEBUG", format, args...) }
