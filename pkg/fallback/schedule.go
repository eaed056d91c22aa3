package fallback

import (
	"regexp"
	"strings"
	"time"

	"github.com/aretw0/slotflow/pkg/domain"
)

// TimeRange is a named part of the day with its start and end hour.
type TimeRange struct {
	Name      string
	StartHour int
	EndHour   int
	Patterns  []*regexp.Regexp
}

// DefaultTimeRanges covers English, Hindi, Bengali and their romanized mixes.
var DefaultTimeRanges = []TimeRange{
	{
		Name: "morning", StartHour: 6, EndHour: 12,
		Patterns: compile(
			`\b(morning|subah|saver|savere|shokal|sokal|bhor)\b`,
			`\b([6-9]|10|11)\s*am\b`,
			`\b0?[6-9][:]\d{2}\b`,
		),
	},
	{
		Name: "afternoon", StartHour: 12, EndHour: 17,
		Patterns: compile(
			`\b(afternoon|dopahar|dophar|lunch|lunchtime|dupur|bikel|bela)\b`,
			`\b(12|1|2|3|4)\s*pm\b`,
			`\b1[2-4][:]\d{2}\b`,
		),
	},
	{
		Name: "evening", StartHour: 17, EndHour: 21,
		Patterns: compile(
			`\b(evening|sham|shaam|night|sandhya|sandhye|sondha|bikal|raat|rat)\b`,
			`\b([5-9]|10)\s*pm\b`,
			`\b1[7-9][:]\d{2}\b`,
			`\b20[:]\d{2}\b`,
		),
	},
}

// TimeOfDay extracts "preferred_time_range", "start_hour" and "end_hour".
type TimeOfDay struct {
	Ranges []TimeRange
}

func (t TimeOfDay) Match(message string) domain.Extraction {
	ranges := t.Ranges
	if ranges == nil {
		ranges = DefaultTimeRanges
	}
	lower := strings.ToLower(message)
	for _, r := range ranges {
		for _, re := range r.Patterns {
			if re.MatchString(lower) {
				return domain.Extraction{
					Fields: map[string]any{
						"preferred_time_range": r.Name,
						"start_hour":           r.StartHour,
						"end_hour":             r.EndHour,
					},
					Confidence: 0.95,
				}
			}
		}
	}
	return domain.Extraction{}
}

var relativeDays = []struct {
	name   string
	offset int
	re     *regexp.Regexp
}{
	{"today", 0, regexp.MustCompile(`\b(today|aaj)\b`)},
	{"tomorrow", 1, regexp.MustCompile(`\b(tomorrow|kal|agle din)\b`)},
}

var weekdayPatterns = []struct {
	day time.Weekday
	re  *regexp.Regexp
}{
	{time.Monday, regexp.MustCompile(`\b(monday|sombar|somvar|mon)\b`)},
	{time.Tuesday, regexp.MustCompile(`\b(tuesday|mangalbar|mangalvar|tue)\b`)},
	{time.Wednesday, regexp.MustCompile(`\b(wednesday|budhbar|budhvar|wed)\b`)},
	{time.Thursday, regexp.MustCompile(`\b(thursday|brihospotibar|guruvar|thu)\b`)},
	{time.Friday, regexp.MustCompile(`\b(friday|shukrobar|shukravar|fri)\b`)},
	{time.Saturday, regexp.MustCompile(`\b(saturday|shonibar|shanivar|sat|weekend)\b`)},
	{time.Sunday, regexp.MustCompile(`\b(sunday|robibar|ravivar|sun)\b`)},
}

// Date extracts "preferred_date" (YYYY-MM-DD) and "date_str" from relative
// expressions. A weekday that equals today resolves to next week.
type Date struct {
	Now func() time.Time
}

func (d Date) Match(message string) domain.Extraction {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	today := now()
	lower := strings.ToLower(message)

	for _, r := range relativeDays {
		if r.re.MatchString(lower) {
			return dateExtraction(today.AddDate(0, 0, r.offset), r.name, 0.95)
		}
	}
	for _, w := range weekdayPatterns {
		if w.re.MatchString(lower) {
			ahead := (int(w.day) - int(today.Weekday()) + 7) % 7
			if ahead == 0 {
				ahead = 7
			}
			return dateExtraction(today.AddDate(0, 0, ahead), strings.ToLower(w.day.String()), 0.9)
		}
	}
	return domain.Extraction{}
}

func dateExtraction(t time.Time, label string, confidence float64) domain.Extraction {
	return domain.Extraction{
		Fields: map[string]any{
			"preferred_date": t.Format(time.DateOnly),
			"date_str":       label,
		},
		Confidence: confidence,
	}
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}
