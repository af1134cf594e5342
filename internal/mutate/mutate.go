// Package mutate rewrites note content at previously parsed line positions.
// Every function is pure: it takes content and returns new content.
package mutate

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/starford/miding/internal/apperr"
	"github.com/starford/miding/internal/models"
)

const (
	unchecked = "- [ ] "
	checked   = "- [x] "

	dateLayout = "2006-01-02"
)

var doneRe = regexp.MustCompile(`\s*@done\([^)]*\)`)

// ToggleTaskAtLine flips the checkbox on line lineIndex. Checking appends
// @done(<today>); unchecking removes any @done annotation. changed is false
// when the index is out of range or the line holds no checkbox.
func ToggleTaskAtLine(content string, lineIndex int, today time.Time) (newContent string, changed bool) {
	lines := strings.Split(content, "\n")
	if lineIndex < 0 || lineIndex >= len(lines) {
		return content, false
	}

	line, cr := strings.CutSuffix(lines[lineIndex], "\r")
	// Only the leading checkbox counts; the text may quote either marker.
	rest := strings.TrimLeftFunc(line, unicode.IsSpace)
	indent := line[:len(line)-len(rest)]
	switch {
	case strings.HasPrefix(rest, unchecked):
		line = indent + checked + rest[len(unchecked):]
		line, _ = removeDone(line)
		line = strings.TrimRightFunc(line, unicode.IsSpace) + " @done(" + today.Format(dateLayout) + ")"
	case strings.HasPrefix(rest, checked):
		line = indent + unchecked + rest[len(checked):]
		line, _ = removeDone(line)
	default:
		return content, false
	}
	if cr {
		line += "\r"
	}

	lines[lineIndex] = line
	return strings.Join(lines, "\n"), true
}

// removeDone strips @done(...) annotations and collapses the double spaces
// the removal leaves behind. Leading indentation is preserved.
func removeDone(line string) (string, bool) {
	if !doneRe.MatchString(line) {
		return line, false
	}
	rest := strings.TrimLeftFunc(line, unicode.IsSpace)
	indent := line[:len(line)-len(rest)]

	rest = doneRe.ReplaceAllString(rest, "")
	for strings.Contains(rest, "  ") {
		rest = strings.ReplaceAll(rest, "  ", " ")
	}
	return indent + strings.TrimRightFunc(rest, unicode.IsSpace), true
}

// SetTicketStatus rewrites the status field of the ticket block spanning
// lines [start, end]. Moving to closed sets closed: <today>, inserted right
// after the status line when missing; moving away from closed drops it.
// Content is left untouched when an error is returned.
func SetTicketStatus(content string, start, end int, status models.TicketStatus, today time.Time) (string, error) {
	if _, ok := models.ParseTicketStatus(string(status)); !ok {
		return content, fmt.Errorf("mutate: %q: %w", status, apperr.ErrInvalidStatus)
	}

	lines := strings.Split(content, "\n")
	if start < 0 || end >= len(lines) || start > end {
		return content, fmt.Errorf("mutate: span [%d, %d] of %d lines: %w", start, end, len(lines), apperr.ErrInvalidSpan)
	}

	statusIdx, closedIdx := -1, -1
	for i := start; i <= end; i++ {
		trimmed := strings.TrimSpace(lines[i])
		// Fields end at the block closer; the body may mention "status:" freely.
		if i > start && trimmed == ":::" {
			break
		}
		lower := strings.ToLower(trimmed)
		switch {
		case statusIdx < 0 && strings.HasPrefix(lower, "status:"):
			statusIdx = i
		case closedIdx < 0 && strings.HasPrefix(lower, "closed:"):
			closedIdx = i
		}
	}
	if statusIdx < 0 {
		return content, fmt.Errorf("mutate: span [%d, %d]: %w", start, end, apperr.ErrStatusNotFound)
	}

	previous, _ := models.ParseTicketStatus(fieldValue(lines[statusIdx]))
	lines[statusIdx] = rewriteField(lines[statusIdx], string(status))

	stamp := today.Format(dateLayout)
	switch {
	case status == models.StatusClosed && closedIdx >= 0:
		// Re-closing an already closed ticket keeps its original date.
		if previous != models.StatusClosed {
			lines[closedIdx] = rewriteField(lines[closedIdx], stamp)
		}
	case status == models.StatusClosed:
		indent, key := splitKey(lines[statusIdx])
		closedKey := "closed"
		if key != "" && unicode.IsUpper(rune(key[0])) {
			closedKey = "Closed"
		}
		line := indent + closedKey + ": " + stamp
		lines = slices.Insert(lines, statusIdx+1, line)
	case closedIdx >= 0:
		lines = slices.Delete(lines, closedIdx, closedIdx+1)
	}

	return strings.Join(lines, "\n"), nil
}

// splitKey returns the leading whitespace and the key as written.
func splitKey(line string) (indent, key string) {
	rest := strings.TrimLeftFunc(line, unicode.IsSpace)
	indent = line[:len(line)-len(rest)]
	if idx := strings.Index(rest, ":"); idx >= 0 {
		key = strings.TrimSpace(rest[:idx])
	}
	return indent, key
}

func fieldValue(line string) string {
	if idx := strings.Index(line, ":"); idx >= 0 {
		return strings.TrimSpace(line[idx+1:])
	}
	return ""
}

// rewriteField replaces the value of a "key: value" line, keeping the
// indentation and the key spelling.
func rewriteField(line, value string) string {
	line, cr := strings.CutSuffix(line, "\r")
	indent, key := splitKey(line)
	out := indent + key + ": " + value
	if cr {
		out += "\r"
	}
	return out
}
