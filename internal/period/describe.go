package period

import (
	"fmt"
	"time"
)

func (p *Period) describe() {
	thisMonth := date(p.today.Year(), int(p.today.Month()), 1)
	lastMonth := thisMonth.AddDate(0, -1, 0)
	yesterday := p.today.AddDate(0, 0, -1)

	switch p.Kind {
	case KindMonth:
		switch {
		case p.Start.Equal(thisMonth):
			p.IsThisMonth = true
			p.Description, p.PrepDesc = "This Month", "this month"
		case p.Start.Equal(lastMonth):
			p.IsLastMonth = true
			p.Description, p.PrepDesc = "Last Month", "last month"
		default:
			p.Description = monthText(p.Start)
			p.PrepDesc = "in " + p.Description
		}
	case KindSinceMonth:
		p.Description = "Since " + monthText(p.Start)
		p.PrepDesc = "since " + monthText(p.Start)
	case KindUntilMonth:
		p.Description = "Until " + monthText(p.End)
		p.PrepDesc = "until " + monthText(p.End)
	case KindYear:
		switch p.Start.Year() {
		case p.today.Year():
			p.IsThisYear = true
			p.Description, p.PrepDesc = "This Year", "this year"
		case p.today.Year() - 1:
			p.IsLastYear = true
			p.Description, p.PrepDesc = "Last Year", "last year"
		default:
			p.Description = fmt.Sprintf("%d", p.Start.Year())
			p.PrepDesc = "in " + p.Description
		}
	case KindUntilYear:
		p.Description = fmt.Sprintf("Until %d", p.End.Year())
		p.PrepDesc = fmt.Sprintf("until %d", p.End.Year())
	case KindAll:
		p.Description, p.PrepDesc = "All", "in all time"
	case KindDay:
		switch {
		case p.Start.Equal(p.today):
			p.IsToday = true
			p.Description, p.PrepDesc = "Today", "today"
		case p.Start.Equal(yesterday):
			p.IsYesterday = true
			p.Description, p.PrepDesc = "Yesterday", "yesterday"
		default:
			p.Description = dayText(p.Start)
			p.PrepDesc = "on " + p.Description
		}
	case KindRange:
		from, to := rangeText(p.Start, p.End)
		p.Description = from + "-" + to
		p.PrepDesc = "from " + from + " to " + to
	case KindUntilDay:
		p.Description = "Until " + dayText(p.End)
		p.PrepDesc = "until " + dayText(p.End)
	}
}

// rangeText drops the parts of end it shares with start: the year when
// both fall in one year, and the month too when both fall in one month.
func rangeText(start, end time.Time) (string, string) {
	switch {
	case start.Equal(end):
		return dayText(start), dayText(end)
	case start.Year() != end.Year():
		return dayText(start), dayText(end)
	case start.Month() != end.Month():
		return dayText(start), fmt.Sprintf("%d/%d", int(end.Month()), end.Day())
	default:
		return dayText(start), fmt.Sprintf("%d", end.Day())
	}
}

func monthText(t time.Time) string {
	return fmt.Sprintf("%d/%d", t.Year(), int(t.Month()))
}

func dayText(t time.Time) string {
	return fmt.Sprintf("%d/%d/%d", t.Year(), int(t.Month()), t.Day())
}
