package normalize

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"visitcheck/internal/chrono"
)

// HolidaySet is a set of calendar days.
type HolidaySet map[string]struct{}

func (h HolidaySet) Add(t time.Time) {
	h[chrono.DayKey(t)] = struct{}{}
}

// Contains ignores the time of day of t.
func (h HolidaySet) Contains(t time.Time) bool {
	_, ok := h[chrono.DayKey(t)]
	return ok
}

// ReadHolidays reads one date per line, blank and unparseable lines are skipped.
func ReadHolidays(r io.Reader) (HolidaySet, error) {
	days := HolidaySet{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" {
			continue
		}
		t := ParseDatetime(line)
		if t.IsZero() {
			continue
		}
		days.Add(t)
	}
	return days, scanner.Err()
}

// LoadHolidays reads the holiday file at path. An empty path or a file that
// does not exist is not an error, it just means no holidays are known. On a
// read error the days read so far are returned alongside the error.
func LoadHolidays(path string) (HolidaySet, error) {
	if path == "" {
		return HolidaySet{}, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return HolidaySet{}, nil
	}
	if err != nil {
		return HolidaySet{}, fmt.Errorf("open holidays: %w", err)
	}
	defer f.Close()

	days, err := ReadHolidays(f)
	if err != nil {
		return days, fmt.Errorf("read holidays: %w", err)
	}
	return days, nil
}
