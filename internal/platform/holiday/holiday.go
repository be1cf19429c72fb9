package holiday

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/rota/rota/pkg/calendar"
)

// Calendar tracks named holidays by date. It is seeded with the US federal
// holidays for a span of years and can be extended from an iCalendar feed.
type Calendar struct {
	mu     sync.RWMutex
	byDate map[calendar.Date]string
}

func NewCalendar() *Calendar {
	return &Calendar{byDate: make(map[calendar.Date]string)}
}

// NewUSFederal returns a calendar pre-populated with US federal holidays
// for the years [fromYear, toYear].
func NewUSFederal(fromYear, toYear int) *Calendar {
	c := NewCalendar()
	for y := fromYear; y <= toYear; y++ {
		for _, h := range USFederal(y) {
			c.Add(h.Date, h.Name)
		}
	}
	return c
}

func (c *Calendar) Add(d calendar.Date, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byDate[d] = name
}

func (c *Calendar) IsHoliday(d calendar.Date) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.byDate[d]
	return ok
}

// Name returns the holiday name for the date, if any.
func (c *Calendar) Name(d calendar.Date) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.byDate[d]
	return name, ok
}

// LoadICS merges holidays from an iCalendar feed into the calendar and
// returns the number of events imported. Events without a parseable start
// date are skipped.
func (c *Calendar) LoadICS(r io.Reader) (int, error) {
	cal, err := ics.ParseCalendar(r)
	if err != nil {
		return 0, fmt.Errorf("parsing ics: %w", err)
	}

	count := 0
	for _, ev := range cal.Events() {
		start, err := ev.GetAllDayStartAt()
		if err != nil {
			start, err = ev.GetStartAt()
			if err != nil {
				continue
			}
		}

		name := "Holiday"
		if p := ev.GetProperty(ics.ComponentPropertySummary); p != nil && p.Value != "" {
			name = p.Value
		}

		c.Add(calendar.DateOf(start), name)
		count++
	}
	return count, nil
}

// LoadICSFile reads holidays from an .ics file on disk.
func (c *Calendar) LoadICSFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening ics file: %w", err)
	}
	defer f.Close()
	return c.LoadICS(f)
}

// Holiday is a single named holiday.
type Holiday struct {
	Date calendar.Date
	Name string
}

// USFederal computes the US federal holidays observed in the given year.
// Fixed-date holidays are returned on their actual date, not shifted for
// weekend observance; scheduling treats weekends as exempt anyway.
func USFederal(year int) []Holiday {
	return []Holiday{
		{calendar.Date{Year: year, Month: time.January, Day: 1}, "New Year's Day"},
		{nthWeekday(year, time.January, time.Monday, 3), "Martin Luther King Jr. Day"},
		{nthWeekday(year, time.February, time.Monday, 3), "Presidents' Day"},
		{lastWeekday(year, time.May, time.Monday), "Memorial Day"},
		{calendar.Date{Year: year, Month: time.June, Day: 19}, "Juneteenth"},
		{calendar.Date{Year: year, Month: time.July, Day: 4}, "Independence Day"},
		{nthWeekday(year, time.September, time.Monday, 1), "Labor Day"},
		{nthWeekday(year, time.November, time.Thursday, 4), "Thanksgiving Day"},
		{calendar.Date{Year: year, Month: time.November, Day: 11}, "Veterans Day"},
		{calendar.Date{Year: year, Month: time.December, Day: 25}, "Christmas Day"},
	}
}

// nthWeekday returns the n-th occurrence of the weekday in the month.
func nthWeekday(year int, month time.Month, wd time.Weekday, n int) calendar.Date {
	first := calendar.Date{Year: year, Month: month, Day: 1}
	offset := (int(wd) - int(first.Weekday()) + 7) % 7
	return first.AddDays(offset + (n-1)*7)
}

// lastWeekday returns the last occurrence of the weekday in the month.
func lastWeekday(year int, month time.Month, wd time.Weekday) calendar.Date {
	last := calendar.Date{Year: year, Month: month + 1, Day: 1}.AddDays(-1)
	offset := (int(last.Weekday()) - int(wd) + 7) % 7
	return last.AddDays(-offset)
}
