package normalize

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"visitcheck/internal/chrono"
	"visitcheck/internal/visit"

	"github.com/stretchr/testify/require"
)

func TestIsFilled(t *testing.T) {
	testCases := []struct {
		text     string
		expected bool
	}{
		{text: "", expected: false},
		{text: "  ", expected: false},
		{text: "未填寫", expected: false},
		{text: " 未填 ", expected: false},
		{text: "NA", expected: false},
		{text: "N/A", expected: false},
		{text: "None", expected: false},
		{text: "null", expected: false},
		{text: "NULL", expected: true},
		{text: "na", expected: true},
		{text: "已填寫", expected: true},
		{text: "1: 本人", expected: true},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, IsFilled(test.text), "IsFilled(%q)", test.text)
	}
}

func TestCanonicalResultCode(t *testing.T) {
	testCases := []struct {
		text     string
		expected string
	}{
		{text: "100.00", expected: "100"},
		{text: "100.0", expected: "100"},
		{text: " 201.0 ", expected: "201"},
		{text: "100", expected: "100"},
		{text: "", expected: ""},
		{text: "   ", expected: ""},
		{text: "abc", expected: "abc"},
		{text: "100.5", expected: "100.5"},
		{text: "100.", expected: "100."},
		{text: ".0", expected: ".0"},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, CanonicalResultCode(test.text), "CanonicalResultCode(%q)", test.text)
	}
}

func TestParseDatetime(t *testing.T) {
	tz := chrono.Taipei()

	testCases := []struct {
		text     string
		expected time.Time
	}{
		{text: "2025/03/01 13:04:05", expected: time.Date(2025, 3, 1, 13, 4, 5, 0, tz)},
		{text: "2025-03-01 13:04:05", expected: time.Date(2025, 3, 1, 13, 4, 5, 0, tz)},
		{text: "2025/3/1", expected: time.Date(2025, 3, 1, 0, 0, 0, 0, tz)},
		{text: "2025-03-01", expected: time.Date(2025, 3, 1, 0, 0, 0, 0, tz)},
		{text: "03/01/2025 08:30", expected: time.Date(2025, 3, 1, 8, 30, 0, 0, tz)},
		{text: "3/1/2025", expected: time.Date(2025, 3, 1, 0, 0, 0, 0, tz)},
		{text: " 2025-03-01 ", expected: time.Date(2025, 3, 1, 0, 0, 0, 0, tz)},
	}

	for _, test := range testCases {
		got := ParseDatetime(test.text)
		require.True(t, test.expected.Equal(got), "ParseDatetime(%q) = %v", test.text, got)
	}
}

func TestParseDatetimeFallback(t *testing.T) {
	got := ParseDatetime("March 1, 2025")
	require.False(t, got.IsZero())
	require.Equal(t, "2025-03-01", chrono.DayKey(got))
}

func TestParseDatetimeNotATime(t *testing.T) {
	for _, text := range []string{"", "   ", "not a date", "無訪次"} {
		require.True(t, ParseDatetime(text).IsZero(), "ParseDatetime(%q)", text)
	}
}

func TestSessionBucket(t *testing.T) {
	testCases := []struct {
		text     string
		expected Bucket
	}{
		{text: "白天", expected: BucketDay},
		{text: "上午 9-12", expected: BucketDay},
		{text: "早上", expected: BucketDay},
		{text: "下午", expected: BucketAfternoon},
		{text: "晚上", expected: BucketEvening},
		{text: "夜間訪問", expected: BucketEvening},
		{text: "d", expected: BucketDay},
		{text: "Day", expected: BucketDay},
		{text: "A", expected: BucketAfternoon},
		{text: "afternoon", expected: BucketAfternoon},
		{text: "E", expected: BucketEvening},
		{text: " night ", expected: BucketEvening},
		// synonyms are checked in a fixed order, day wins over evening
		{text: "上午或晚上", expected: BucketDay},
		{text: "TODAY", expected: BucketUnknown},
		{text: "無訪次", expected: BucketUnknown},
		{text: "", expected: BucketUnknown},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, SessionBucket(test.text), "SessionBucket(%q)", test.text)
	}
}

func TestIsWeekendOrHoliday(t *testing.T) {
	tz := chrono.Taipei()
	holidays := HolidaySet{}
	holidays.Add(time.Date(2025, 2, 28, 0, 0, 0, 0, tz))

	// 2025-03-01 is a Saturday, 2025-03-03 a Monday
	require.True(t, IsWeekendOrHoliday(time.Date(2025, 3, 1, 10, 0, 0, 0, tz), holidays))
	require.True(t, IsWeekendOrHoliday(time.Date(2025, 3, 2, 10, 0, 0, 0, tz), holidays))
	require.False(t, IsWeekendOrHoliday(time.Date(2025, 3, 3, 10, 0, 0, 0, tz), holidays))
	require.True(t, IsWeekendOrHoliday(time.Date(2025, 2, 28, 18, 30, 0, 0, tz), holidays))
	require.False(t, IsWeekendOrHoliday(NotATime, holidays))
	require.False(t, IsWeekendOrHoliday(NotATime, nil))
}

func TestReadHolidays(t *testing.T) {
	input := "\ufeff2025-01-01\n\n   \nnot-a-date\n2025/02/28\n  2025-04-04  \n"
	days, err := ReadHolidays(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, days, 3)
	require.True(t, days.Contains(ParseDatetime("2025-01-01 15:00:00")))
	require.True(t, days.Contains(ParseDatetime("2025-02-28")))
	require.True(t, days.Contains(ParseDatetime("2025-04-04")))
}

func TestLoadHolidays(t *testing.T) {
	{
		days, err := LoadHolidays("")
		require.NoError(t, err)
		require.Len(t, days, 0)
	}
	{
		days, err := LoadHolidays(filepath.Join(t.TempDir(), "missing.txt"))
		require.NoError(t, err)
		require.Len(t, days, 0)
	}
	{
		path := filepath.Join(t.TempDir(), "holidays.txt")
		require.NoError(t, os.WriteFile(path, []byte("2025-10-10\ngarbage\n"), 0600))
		days, err := LoadHolidays(path)
		require.NoError(t, err)
		require.Len(t, days, 1)
	}
}

func TestNormalize(t *testing.T) {
	holidays := HolidaySet{}
	holidays.Add(ParseDatetime("2025-10-10"))

	table := Normalize([]visit.Record{
		{
			SampleID:   "S1",
			Date:       "2025-10-10",
			Session:    "晚上",
			ResultCode: "201.0",
			T16Answer:  "1: 本人",
			Sampling:   visit.Done,
			SamplingQ:  visit.NotDone,
		},
		{SampleID: "S2", Date: "bad", Session: "?"},
	}, holidays)

	require.Len(t, table, 2)

	first := table[0]
	require.Equal(t, 0, first.Row)
	require.Equal(t, "201", first.ResultCode3)
	require.Equal(t, "201.0", first.ResultCode)
	require.Equal(t, BucketEvening, first.Bucket)
	require.True(t, first.HasDateTime())
	require.True(t, first.WeekendOrHoliday)
	require.True(t, first.T16Filled)
	require.True(t, first.SamplingFilled)
	require.False(t, first.SamplingQFilled)
	require.False(t, first.InterviewRecordFilled)

	second := table[1]
	require.Equal(t, 1, second.Row)
	require.False(t, second.HasDateTime())
	require.False(t, second.WeekendOrHoliday)
	require.Equal(t, BucketUnknown, second.Bucket)
}

func rowsOf(t Table) []int {
	rows := make([]int, len(t))
	for i, r := range t {
		rows[i] = r.Row
	}
	return rows
}

func TestSortedByVisit(t *testing.T) {
	table := Normalize([]visit.Record{
		{SampleID: "B", Date: "2025-03-02"}, // 0
		{SampleID: "A", Date: ""},           // 1
		{SampleID: "A", Date: "2025-03-05"}, // 2
		{SampleID: "A", Date: "2025-03-01"}, // 3
		{SampleID: "A", Date: "garbage"},    // 4
		{SampleID: "B", Date: "2025-03-02"}, // 5
		{SampleID: "A", Date: "2025-03-01"}, // 6
	}, nil)

	sorted := table.SortedByVisit()

	// undated visits sort after dated ones, equal dates keep input order
	require.Equal(t, []int{3, 6, 2, 1, 4, 0, 5}, rowsOf(sorted))
	// the source table is left untouched
	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, rowsOf(table))
}

func TestGroupBySample(t *testing.T) {
	table := Normalize([]visit.Record{
		{SampleID: "B"},
		{SampleID: "A"},
		{SampleID: "B"},
		{SampleID: "C"},
		{SampleID: "A"},
	}, nil)

	groups := table.GroupBySample()
	require.Len(t, groups, 3)
	require.Equal(t, "B", groups[0].SampleID)
	require.Equal(t, []int{0, 2}, rowsOf(groups[0].Records))
	require.Equal(t, "A", groups[1].SampleID)
	require.Equal(t, []int{1, 4}, rowsOf(groups[1].Records))
	require.Equal(t, 4, groups[1].Last().Row)
	require.Equal(t, "C", groups[2].SampleID)

	visitGroups := table.VisitGroups()
	require.Equal(t, "A", visitGroups[0].SampleID)
	require.Equal(t, "B", visitGroups[1].SampleID)
	require.Equal(t, "C", visitGroups[2].SampleID)
}
