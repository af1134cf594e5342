// Package parser extracts tasks, tickets, projects, and journal frontmatter
// from raw note text. Parsing never fails: malformed constructs are skipped or
// fall back to default values.
package parser

import (
	"strconv"
	"strings"
	"time"

	"github.com/starford/miding/internal/models"
)

// Date and time layouts used by every annotation and block field.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

const (
	frontmatterDelim = "---"
	ticketOpener     = ":::ticket"
	projectOpener    = ":::project"
	blockCloser      = ":::"
	uncheckedPrefix  = "- [ ] "
	checkedPrefix    = "- [x] "
)

// Parse converts note content into a ParseResult in a single forward pass.
func Parse(content string) models.ParseResult {
	res := models.ParseResult{
		Tasks:           []models.TaskItem{},
		Tickets:         []models.Ticket{},
		Projects:        []models.Project{},
		CalendarEntries: []models.CalendarEntry{},
	}

	lines := strings.Split(content, "\n")
	i := 0
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])

		switch {
		case i == 0 && trimmed == frontmatterDelim:
			meta, next := parseFrontmatter(lines, i)
			res.Metadata = meta
			i = next

		case trimmed == ticketOpener:
			ticket, next := parseTicketBlock(lines, i)
			res.Tickets = append(res.Tickets, ticket)
			i = next

		case trimmed == projectOpener:
			project, next := parseProjectBlock(lines, i)
			res.Projects = append(res.Projects, project)
			i = next

		default:
			if task, ok := ParseTaskLine(lines[i], i); ok {
				res.Tasks = append(res.Tasks, task)
			}
			i++
		}
	}

	return res
}

// isBlockOpener reports whether a trimmed line starts a new entity and
// therefore ends the body of the current ticket.
func isBlockOpener(trimmed string) bool {
	return trimmed == ticketOpener || trimmed == projectOpener || isTaskLine(trimmed)
}

func isTaskLine(trimmed string) bool {
	return strings.HasPrefix(trimmed, uncheckedPrefix) || strings.HasPrefix(trimmed, checkedPrefix)
}

// splitField splits "key: value" on the first colon. The key is lowercased.
func splitField(line string) (key, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}
	key = strings.ToLower(strings.TrimSpace(line[:idx]))
	value = strings.TrimSpace(line[idx+1:])
	if key == "" {
		return "", "", false
	}
	return key, value, true
}

// parseDate parses a yyyy-MM-dd literal in the host's local calendar.
func parseDate(value string) *time.Time {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), time.Local)
	if err != nil {
		return nil
	}
	return &t
}

// parseFrontmatter consumes lines up to and including the closing ---.
func parseFrontmatter(lines []string, start int) (*models.JournalMetadata, int) {
	meta := &models.JournalMetadata{}
	i := start + 1
	for i < len(lines) {
		line := lines[i]
		i++
		if strings.TrimSpace(line) == frontmatterDelim {
			break
		}
		key, value, ok := splitField(line)
		if !ok || value == "" {
			continue
		}
		switch key {
		case "date":
			meta.Date = parseDate(value)
		case "mood":
			meta.Mood = value
		case "energy":
			if n, err := strconv.Atoi(value); err == nil {
				meta.Energy = &n
			}
		case "sleep":
			meta.Sleep = value
		case "tags":
			meta.Tags = parseTagList(value)
		}
	}
	return meta, i
}

// parseTagList reads "[a, b]": brackets are optional and every comma
// separates a tag, so "a, b" inside quotes is still two tags.
func parseTagList(value string) []string {
	inner := strings.TrimSpace(value)
	inner = strings.TrimPrefix(inner, "[")
	inner = strings.TrimSuffix(inner, "]")
	raw := strings.Split(inner, ",")
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// parseTicketBlock consumes a :::ticket block plus its free-text body.
// The body runs until the next block opener or task line, which is left
// unconsumed for the outer loop.
func parseTicketBlock(lines []string, start int) (models.Ticket, int) {
	var (
		fields   []string
		body     []string
		inBody   bool
		closer   = -1
		lastBody = -1
	)

	i := start + 1
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])
		if !inBody {
			if trimmed == blockCloser {
				inBody = true
				closer = i
				i++
				continue
			}
			fields = append(fields, lines[i])
		} else {
			if isBlockOpener(trimmed) {
				break
			}
			body = append(body, lines[i])
			lastBody = i
		}
		i++
	}

	ticket := models.Ticket{
		Identifier: "UNKNOWN",
		Status:     models.StatusOpen,
		BlockStart: start,
	}
	switch {
	case lastBody >= 0:
		ticket.BlockEnd = lastBody
	case closer >= 0:
		ticket.BlockEnd = closer
	default:
		ticket.BlockEnd = i - 1
	}

	for _, line := range fields {
		key, value, ok := splitField(line)
		if !ok || value == "" {
			continue
		}
		switch key {
		case "id":
			ticket.Identifier = value
		case "title":
			ticket.Title = value
		case "status":
			if st, ok := models.ParseTicketStatus(value); ok {
				ticket.Status = st
			}
		case "priority":
			if p, ok := models.ParsePriority(value); ok {
				ticket.Priority = p
			}
		case "due":
			ticket.DueDate = parseDate(value)
		case "created":
			ticket.CreatedDate = parseDate(value)
		case "closed":
			ticket.ClosedDate = parseDate(value)
		case "owner":
			ticket.Owner = value
		case "project":
			ticket.Project = value
		}
	}

	ticket.Body = strings.TrimSpace(strings.Join(body, "\n"))
	return ticket, i
}

// parseProjectBlock consumes a :::project block up to and including its closer.
func parseProjectBlock(lines []string, start int) (models.Project, int) {
	project := models.Project{Name: "New Project", Status: "active"}

	i := start + 1
	for i < len(lines) {
		line := lines[i]
		i++
		if strings.TrimSpace(line) == blockCloser {
			break
		}
		key, value, ok := splitField(line)
		if !ok || value == "" {
			continue
		}
		switch key {
		case "name":
			project.Name = value
		case "status":
			project.Status = value
		case "owner":
			project.Owner = value
		case "deadline":
			project.Deadline = parseDate(value)
		}
	}
	return project, i
}
