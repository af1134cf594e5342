// Package stats derives time-bucketed and categorical summaries from the
// tasks, tickets and history held by the note store. Every summary is
// recomputed in full from its input.
package stats

import (
	"sort"
	"time"

	"github.com/starford/miding/internal/models"
)

// Window sizes and list limits.
const (
	FlowDays    = 14
	HeatmapDays = 119 // 17 weeks
	BiasWindow  = 7 * 24 * time.Hour

	// NoPriority labels tickets without a priority in the distribution.
	NoPriority = "no-priority"

	topCategories = 5
	topTags       = 10
	recentEntries = 5
)

// Input is everything a summary is computed from. History must be sorted
// newest first.
type Input struct {
	Notes   []models.Note
	Tasks   []models.TaskItem
	Tickets []models.Ticket
	History []models.NoteHistoryEntry
}

// DayCount is one point of a daily series.
type DayCount struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// DailyActivity is one heatmap cell.
type DailyActivity struct {
	Date         time.Time `json:"date"`
	TaskCount    int       `json:"taskCount"`
	TicketCount  int       `json:"ticketCount"`
	JournalCount int       `json:"journalCount"`
	Total        int       `json:"totalCount"`
}

// LabelCount is one bucket of a distribution.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ActivityCounts is the overview widget.
type ActivityCounts struct {
	Journal int `json:"journal"`
	Tasks   int `json:"tasks"`
	Tickets int `json:"tickets"`
	Notes   int `json:"notes"`
}

// Summary holds every derived statistic.
type Summary struct {
	GeneratedAt time.Time `json:"generatedAt"`

	TotalCompletedTasks  int     `json:"totalCompletedTasks"`
	DailyAvgTasks        float64 `json:"dailyAvgTasks"`
	TotalTickets         int     `json:"totalTickets"`
	TicketCompletionRate float64 `json:"ticketCompletionRate"`

	// Oldest to newest, FlowDays entries each.
	TaskFlow    []DayCount `json:"taskFlow"`
	TicketFlow  []DayCount `json:"ticketFlow"`
	HistoryFlow []DayCount `json:"historyFlow"`
	TotalFlow   []DayCount `json:"totalFlow"`

	// Oldest to newest, exactly HeatmapDays entries.
	Heatmap []DailyActivity `json:"heatmap"`

	GradientBias float64 `json:"gradientBias"`

	PriorityDistribution []LabelCount              `json:"priorityDistribution"`
	CategoryDistribution []LabelCount              `json:"categoryDistribution"`
	TopTags              []LabelCount              `json:"topTags"`
	RecentActivity       []models.NoteHistoryEntry `json:"recentActivity"`
	Counts               ActivityCounts            `json:"counts"`
}

// Compute derives a Summary from in. Days are calendar days in now's
// location.
func Compute(in Input, now time.Time) Summary {
	s := Summary{GeneratedAt: now}
	today := startOfDay(now, now.Location())

	var completed []time.Time
	for _, t := range in.Tasks {
		if t.CompletedDate != nil {
			completed = append(completed, *t.CompletedDate)
		}
	}
	s.TotalCompletedTasks = len(completed)
	if len(completed) > 0 {
		first := completed[0]
		for _, d := range completed[1:] {
			if d.Before(first) {
				first = d
			}
		}
		days := max(1, int(now.Sub(first)/(24*time.Hour)))
		s.DailyAvgTasks = float64(len(completed)) / float64(days)
	}

	s.TotalTickets = len(in.Tickets)
	if s.TotalTickets > 0 {
		closed := 0
		for _, t := range in.Tickets {
			if t.Status == models.StatusClosed {
				closed++
			}
		}
		s.TicketCompletionRate = float64(closed) / float64(s.TotalTickets)
	}

	s.TaskFlow, s.TicketFlow, s.HistoryFlow, s.TotalFlow = flows(in, completed, today)
	s.Heatmap = heatmap(in, completed, today)
	s.GradientBias = gradientBias(in.Tickets, completed, now)

	s.PriorityDistribution = priorityDistribution(in)
	s.CategoryDistribution = categoryDistribution(in.Tasks)
	s.TopTags = tagDistribution(in.Notes)

	s.RecentActivity = append([]models.NoteHistoryEntry{}, in.History[:min(recentEntries, len(in.History))]...)

	for _, n := range in.Notes {
		if n.IsJournal() {
			s.Counts.Journal++
		} else {
			s.Counts.Notes++
		}
	}
	s.Counts.Tasks = len(in.Tasks)
	s.Counts.Tickets = len(in.Tickets)
	return s
}

// flows builds the FlowDays series. A ticket counts once per day if it was
// created or closed that day.
func flows(in Input, completed []time.Time, today time.Time) (tasks, tickets, history, total []DayCount) {
	loc := today.Location()
	for i := FlowDays - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		var tc, kc, hc int
		for _, d := range completed {
			if startOfDay(d, loc).Equal(day) {
				tc++
			}
		}
		for _, t := range in.Tickets {
			if onDay(t.CreatedDate, day) || onDay(t.ClosedDate, day) {
				kc++
			}
		}
		for _, h := range in.History {
			if startOfDay(h.Timestamp, loc).Equal(day) {
				hc++
			}
		}
		tasks = append(tasks, DayCount{Date: day, Count: tc})
		tickets = append(tickets, DayCount{Date: day, Count: kc})
		history = append(history, DayCount{Date: day, Count: hc})
		total = append(total, DayCount{Date: day, Count: tc + kc + hc})
	}
	return tasks, tickets, history, total
}

// heatmap buckets every event by day. A ticket created and closed on the
// same day contributes two.
func heatmap(in Input, completed []time.Time, today time.Time) []DailyActivity {
	loc := today.Location()
	buckets := make(map[time.Time]*DailyActivity)
	bucket := func(t time.Time) *DailyActivity {
		key := startOfDay(t, loc)
		b, ok := buckets[key]
		if !ok {
			b = &DailyActivity{Date: key}
			buckets[key] = b
		}
		return b
	}

	for _, d := range completed {
		bucket(d).TaskCount++
	}
	for _, t := range in.Tickets {
		if t.CreatedDate != nil {
			bucket(*t.CreatedDate).TicketCount++
		}
		if t.ClosedDate != nil {
			bucket(*t.ClosedDate).TicketCount++
		}
	}
	for _, h := range in.History {
		bucket(h.Timestamp).JournalCount++
	}

	out := make([]DailyActivity, 0, HeatmapDays)
	for i := HeatmapDays - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		cell := DailyActivity{Date: day}
		if b, ok := buckets[day]; ok {
			cell = *b
		}
		cell.Total = cell.TaskCount + cell.TicketCount + cell.JournalCount
		out = append(out, cell)
	}
	return out
}

// gradientBias is -1 when the last week was all tasks, 1 when it was all
// tickets and 0 when it was empty.
func gradientBias(tickets []models.Ticket, completed []time.Time, now time.Time) float64 {
	since := now.Add(-BiasWindow)
	var recentTasks, recentTickets int
	for _, d := range completed {
		if d.After(since) {
			recentTasks++
		}
	}
	for _, t := range tickets {
		if after(t.CreatedDate, since) || after(t.ClosedDate, since) {
			recentTickets++
		}
	}
	total := recentTasks + recentTickets
	if total == 0 {
		return 0
	}
	return 2*float64(recentTickets)/float64(total) - 1
}

func priorityDistribution(in Input) []LabelCount {
	counts := make(map[string]int)
	for _, t := range in.Tickets {
		label := string(t.Priority)
		if label == "" {
			label = NoPriority
		}
		counts[label]++
	}
	for _, t := range in.Tasks {
		if t.Priority != "" {
			counts[string(t.Priority)]++
		}
	}
	return ranked(counts, 0)
}

func categoryDistribution(tasks []models.TaskItem) []LabelCount {
	counts := make(map[string]int)
	for _, t := range tasks {
		if t.Category != "" {
			counts[t.Category]++
		}
	}
	return ranked(counts, topCategories)
}

func tagDistribution(notes []models.Note) []LabelCount {
	counts := make(map[string]int)
	for _, n := range notes {
		for _, tag := range n.Tags {
			counts[tag]++
		}
	}
	return ranked(counts, topTags)
}

// ranked sorts counts descending, ties by label, keeping at most limit
// entries (0 keeps all).
func ranked(counts map[string]int, limit int) []LabelCount {
	out := make([]LabelCount, 0, len(counts))
	for label, c := range counts {
		out = append(out, LabelCount{Label: label, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func onDay(d *time.Time, day time.Time) bool {
	return d != nil && startOfDay(*d, day.Location()).Equal(day)
}

func after(d *time.Time, since time.Time) bool {
	return d != nil && d.After(since)
}
