// Package changelog encodes the per-row decision trail kept in the reserved _CHANGES_LOG column and
// replays it at export time.
//
// A log is a "|"-joined list of "Column:ACTION" tokens, where ACTION is DELETE_ROW, KEEP or
// "Old→New". Separators inside column names and edit values are escaped with a backslash.
package changelog

import (
	"strings"
	"unicode/utf8"
)

const (
	Separator       = "|"
	ActionKeep      = "KEEP"
	ActionDeleteRow = "DELETE_ROW"
	Arrow           = "→"
)

type Entry struct {
	Column string
	// Action is KEEP, DELETE_ROW or an encoded edit; see EditAction.
	Action string
}

func (e Entry) IsDelete() bool {
	return e.Action == ActionDeleteRow
}

func (e Entry) IsKeep() bool {
	return e.Action == ActionKeep
}

// Edit splits an "Old→New" action at its unescaped arrow and unescapes both sides.
func (e Entry) Edit() (oldValue, newValue string, ok bool) {
	if e.IsDelete() || e.IsKeep() {
		return "", "", false
	}
	before, after, ok := cutUnescaped(e.Action, '→')
	if !ok {
		return "", "", false
	}
	return unescape(before), unescape(after), true
}

func (e Entry) String() string {
	return escape(e.Column, ":") + ":" + e.Action
}

// EditAction renders an edit so the log entry explains itself. Backslash, "|" and "→" inside the
// values are escaped with a backslash.
func EditAction(oldValue, newValue string) string {
	return escape(oldValue, "") + Arrow + escape(newValue, "")
}

// Parse splits a log into entries on unescaped "|" and then the first unescaped ":", skipping
// malformed tokens. Column names come back unescaped; actions stay encoded.
func Parse(log string) []Entry {
	if strings.TrimSpace(log) == "" {
		return nil
	}
	var entries []Entry
	for _, token := range splitUnescaped(log, '|') {
		column, action, ok := cutUnescaped(token, ':')
		if !ok || column == "" {
			continue
		}
		entries = append(entries, Entry{Column: unescape(column), Action: action})
	}
	return entries
}

func Encode(entries []Entry) string {
	tokens := make([]string, len(entries))
	for i, e := range entries {
		tokens[i] = e.String()
	}
	return strings.Join(tokens, Separator)
}

// Append records action for column, replacing that column's previous token instead of adding a
// second one. A new edit on top of an earlier edit keeps the earliest old value, so the token always
// reads original→current. KEEP on an edited column leaves the edit in place.
func Append(log, column, action string) string {
	entries := Parse(log)
	next := Entry{Column: column, Action: action}
	for i, e := range entries {
		if e.Column != column {
			continue
		}
		if oldValue, _, wasEdit := e.Edit(); wasEdit {
			if next.IsKeep() {
				return Encode(entries)
			}
			if _, newValue, isEdit := next.Edit(); isEdit {
				next.Action = EditAction(oldValue, newValue)
			}
		}
		entries[i] = next
		return Encode(entries)
	}
	return Encode(append(entries, next))
}

// OriginalValue returns the value column held before the edits recorded in log.
func OriginalValue(log, column string) (string, bool) {
	for _, e := range Parse(log) {
		if e.Column != column {
			continue
		}
		oldValue, _, ok := e.Edit()
		return oldValue, ok
	}
	return "", false
}

// escape backslash-escapes the log's separators in s, plus any extra runes.
func escape(s, extra string) string {
	if !strings.ContainsAny(s, `\|→`+extra) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if r == '\\' || r == '|' || r == '→' || strings.ContainsRune(extra, r) {
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}

// cutUnescaped is strings.Cut that ignores backslash-escaped separators.
func cutUnescaped(s string, sep rune) (before, after string, found bool) {
	escaped := false
	for i, r := range s {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == sep:
			return s[:i], s[i+utf8.RuneLen(r):], true
		}
	}
	return s, "", false
}

func splitUnescaped(s string, sep rune) []string {
	var parts []string
	for {
		before, after, found := cutUnescaped(s, sep)
		parts = append(parts, before)
		if !found {
			return parts
		}
		s = after
	}
}

// IsDeleteMarked reports whether a row is marked for deletion by either reserved column.
func IsDeleteMarked(log, rowDelete string) bool {
	if strings.TrimSpace(rowDelete) != "" {
		return true
	}
	for _, e := range Parse(log) {
		if e.IsDelete() {
			return true
		}
	}
	return false
}
