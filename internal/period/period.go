// Package period turns a compact period specification such as "2020-07",
// "-2021" or "2020-03-01-2020-05-31" into a concrete inclusive date range.
package period

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/imacat/mia-accounting-django-sub000/internal/apperr"
)

// Epoch is the start of every open-ended "until" period.
var Epoch = time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)

// ErrInvalidSpec is returned for a specification matching no known form.
var ErrInvalidSpec = apperr.ErrInvalidInput.WithMessage("invalid period specification")

// Kind is the form a specification was written in.
type Kind int

const (
	KindMonth      Kind = iota // YYYY-MM
	KindSinceMonth             // YYYY-MM-
	KindUntilMonth             // -YYYY-MM
	KindYear                   // YYYY
	KindUntilYear              // -YYYY
	KindAll                    // -
	KindDay                    // YYYY-MM-DD
	KindRange                  // YYYY-MM-DD-YYYY-MM-DD
	KindUntilDay               // -YYYY-MM-DD
)

// DataRange is the span of stored transaction dates. Both ends are zero
// when there are no transactions.
type DataRange struct {
	Start time.Time
	End   time.Time
}

// Empty reports whether there is no data.
func (d DataRange) Empty() bool {
	return d.Start.IsZero() || d.End.IsZero()
}

// Period is a resolved reporting period.
type Period struct {
	Spec        string
	Kind        Kind
	Start       time.Time
	End         time.Time
	Description string
	PrepDesc    string

	IsDefault   bool
	IsThisMonth bool
	IsLastMonth bool
	IsThisYear  bool
	IsLastYear  bool
	IsToday     bool
	IsYesterday bool

	today time.Time
	data  DataRange
}

type parser struct {
	re    *regexp.Regexp
	parse func(p *Period, m []int) error
}

// Evaluated in order; the first match wins.
var parsers = []parser{
	{regexp.MustCompile(`^(\d{4})-(\d{2})$`), parseMonth},
	{regexp.MustCompile(`^(\d{4})-(\d{2})-$`), parseSinceMonth},
	{regexp.MustCompile(`^-(\d{4})-(\d{2})$`), parseUntilMonth},
	{regexp.MustCompile(`^(\d{4})$`), parseYear},
	{regexp.MustCompile(`^-(\d{4})$`), parseUntilYear},
	{regexp.MustCompile(`^-$`), parseAll},
	{regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`), parseDay},
	{regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})-(\d{4})-(\d{2})-(\d{2})$`), parseRange},
	{regexp.MustCompile(`^-(\d{4})-(\d{2})-(\d{2})$`), parseUntilDay},
}

// Parse resolves spec relative to today. An empty spec is the current month.
func Parse(spec string, today time.Time, data DataRange) (*Period, error) {
	p := &Period{today: dateOf(today), data: data}
	if spec == "" {
		p.IsDefault = true
		if err := parseMonth(p, []int{p.today.Year(), int(p.today.Month())}); err != nil {
			return nil, err
		}
		p.describe()
		return p, nil
	}
	for _, ps := range parsers {
		m := ps.re.FindStringSubmatch(spec)
		if m == nil {
			continue
		}
		nums := make([]int, 0, len(m)-1)
		for _, s := range m[1:] {
			n, err := strconv.Atoi(s)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrInvalidSpec, spec)
			}
			nums = append(nums, n)
		}
		if err := ps.parse(p, nums); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSpec, spec, err)
		}
		p.describe()
		return p, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidSpec, spec)
}

func parseMonth(p *Period, m []int) error {
	if err := checkMonth(m[1]); err != nil {
		return err
	}
	p.Kind = KindMonth
	p.Start = date(m[0], m[1], 1)
	p.End = monthEnd(p.Start)
	p.Spec = monthSpec(p.Start)
	return nil
}

func parseSinceMonth(p *Period, m []int) error {
	if err := checkMonth(m[1]); err != nil {
		return err
	}
	p.Kind = KindSinceMonth
	p.Start = date(m[0], m[1], 1)
	p.End = monthEnd(p.today)
	p.Spec = monthSpec(p.Start) + "-"
	return nil
}

func parseUntilMonth(p *Period, m []int) error {
	if err := checkMonth(m[1]); err != nil {
		return err
	}
	p.Kind = KindUntilMonth
	p.Start = Epoch
	p.End = monthEnd(date(m[0], m[1], 1))
	p.Spec = "-" + monthSpec(p.End)
	return nil
}

func parseYear(p *Period, m []int) error {
	p.Kind = KindYear
	p.Start = date(m[0], 1, 1)
	p.End = date(m[0], 12, 31)
	p.Spec = fmt.Sprintf("%04d", m[0])
	return nil
}

func parseUntilYear(p *Period, m []int) error {
	p.Kind = KindUntilYear
	p.Start = Epoch
	p.End = date(m[0], 12, 31)
	p.Spec = fmt.Sprintf("-%04d", m[0])
	return nil
}

func parseAll(p *Period, _ []int) error {
	p.Kind = KindAll
	p.Start = Epoch
	p.End = monthEnd(p.today)
	p.Spec = "-"
	return nil
}

func parseDay(p *Period, m []int) error {
	d, err := checkedDate(m[0], m[1], m[2])
	if err != nil {
		return err
	}
	p.Kind = KindDay
	p.Start = d
	p.End = d
	p.Spec = daySpec(d)
	return nil
}

func parseRange(p *Period, m []int) error {
	start, err := checkedDate(m[0], m[1], m[2])
	if err != nil {
		return err
	}
	end, err := checkedDate(m[3], m[4], m[5])
	if err != nil {
		return err
	}
	if end.Before(start) {
		return fmt.Errorf("end %s precedes start %s", daySpec(end), daySpec(start))
	}
	if start.Equal(end) {
		return parseDay(p, m[:3])
	}
	p.Kind = KindRange
	p.Start = start
	p.End = end
	p.Spec = daySpec(start) + "-" + daySpec(end)
	return nil
}

func parseUntilDay(p *Period, m []int) error {
	d, err := checkedDate(m[0], m[1], m[2])
	if err != nil {
		return err
	}
	p.Kind = KindUntilDay
	p.Start = Epoch
	p.End = d
	p.Spec = "-" + daySpec(d)
	return nil
}

// Contains reports whether d falls within the period.
func (p *Period) Contains(d time.Time) bool {
	d = dateOf(d)
	return !d.Before(p.Start) && !d.After(p.End)
}

// HasYearsToPick reports whether the stored data spans more than one year.
func (p *Period) HasYearsToPick() bool {
	return !p.data.Empty() && p.data.Start.Year() != p.data.End.Year()
}

// YearsToPick lists the years covered by the stored data, oldest first.
func (p *Period) YearsToPick() []int {
	if p.data.Empty() {
		return nil
	}
	var years []int
	for y := p.data.Start.Year(); y <= p.data.End.Year(); y++ {
		years = append(years, y)
	}
	return years
}

// Prev returns the period one unit before a month, year or day period,
// or nil for the other forms.
func (p *Period) Prev() *Period {
	var spec string
	switch p.Kind {
	case KindMonth:
		spec = monthSpec(p.Start.AddDate(0, -1, 0))
	case KindYear:
		spec = fmt.Sprintf("%04d", p.Start.Year()-1)
	case KindDay:
		spec = daySpec(p.Start.AddDate(0, 0, -1))
	default:
		return nil
	}
	prev, err := Parse(spec, p.today, p.data)
	if err != nil {
		return nil
	}
	return prev
}

// Before returns the period of everything strictly before Start, or nil
// when the period already starts at the epoch.
func (p *Period) Before() *Period {
	if !p.Start.After(Epoch) {
		return nil
	}
	before, err := Parse("-"+daySpec(p.Start.AddDate(0, 0, -1)), p.today, p.data)
	if err != nil {
		return nil
	}
	return before
}

func checkMonth(m int) error {
	if m < 1 || m > 12 {
		return fmt.Errorf("month %d out of range", m)
	}
	return nil
}

func checkedDate(y, m, d int) (time.Time, error) {
	if err := checkMonth(m); err != nil {
		return time.Time{}, err
	}
	t := date(y, m, d)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, fmt.Errorf("no such date %04d-%02d-%02d", y, m, d)
	}
	return t, nil
}

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func monthEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

func monthSpec(t time.Time) string {
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

func daySpec(t time.Time) string {
	return t.Format("2006-01-02")
}
