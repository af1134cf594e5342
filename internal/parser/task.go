package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/miding/internal/models"
)

// annotationRe matches the five inline task annotations, e.g. @due(2026-02-20).
var annotationRe = regexp.MustCompile(`@(due|time|priority|cat|done)\(([^)]*)\)`)

// taskNamespace scopes deterministic task identifiers.
var taskNamespace = uuid.MustParse("6f1b7c52-2d4e-4c1a-9a43-3f0e5b8d7a10")

// TaskID derives a task identifier from its line position and raw annotated
// text. The same inputs always yield the same UUID-shaped string.
func TaskID(lineIndex int, rawText string) string {
	return uuid.NewMD5(taskNamespace, []byte(fmt.Sprintf("%d|%s", lineIndex, rawText))).String()
}

// ParseTaskLine parses a single checklist line. ok is false when the line is
// not of the form "- [ ] text" or "- [x] text".
func ParseTaskLine(line string, lineIndex int) (models.TaskItem, bool) {
	trimmed := strings.TrimSpace(line)

	var completed bool
	switch {
	case strings.HasPrefix(trimmed, uncheckedPrefix):
	case strings.HasPrefix(trimmed, checkedPrefix):
		completed = true
	default:
		return models.TaskItem{}, false
	}

	raw := trimmed[len(uncheckedPrefix):]
	task := models.TaskItem{
		ID:          TaskID(lineIndex, raw),
		RawText:     raw,
		IsCompleted: completed,
		LineIndex:   lineIndex,
	}
	applyAnnotations(&task, raw)
	task.Text = StripAnnotations(raw)
	return task, true
}

// applyAnnotations fills optional task fields. The first occurrence of each
// annotation wins; unparsable values leave the field empty.
func applyAnnotations(task *models.TaskItem, raw string) {
	seen := make(map[string]bool, 5)
	for _, m := range annotationRe.FindAllStringSubmatch(raw, -1) {
		name, value := m[1], strings.TrimSpace(m[2])
		if seen[name] {
			continue
		}
		seen[name] = true

		switch name {
		case "due":
			task.DueDate = parseDate(value)
		case "time":
			if t, err := time.Parse(TimeLayout, value); err == nil {
				task.DueTime = t.Format(TimeLayout)
			}
		case "priority":
			if p, ok := models.ParsePriority(value); ok {
				task.Priority = p
			}
		case "cat":
			task.Category = value
		case "done":
			task.CompletedDate = parseDate(value)
		}
	}
}

// StripAnnotations removes every inline annotation and normalises the
// remaining whitespace.
func StripAnnotations(raw string) string {
	return strings.Join(strings.Fields(annotationRe.ReplaceAllString(raw, " ")), " ")
}
