package normalize

import (
	"cmp"
	"slices"
	"time"

	"visitcheck/internal/visit"
)

// Record is a visit record with its derived fields.
type Record struct {
	visit.Record

	// Row is the position of the record in the input table, the tie-break
	// between visits with equal or missing dates.
	Row int

	ResultCode3      string
	DateTime         time.Time
	Bucket           Bucket
	WeekendOrHoliday bool

	T16Filled             bool
	SamplingFilled        bool
	SamplingQFilled       bool
	InterviewRecordFilled bool
}

// HasDateTime reports whether the visit date could be parsed.
func (r Record) HasDateTime() bool {
	return !r.DateTime.IsZero()
}

// Table is an ordered, read-only sequence of normalized records.
type Table []Record

// Normalize derives the typed fields of every record, the table keeps the
// order of records.
func Normalize(records []visit.Record, holidays HolidaySet) Table {
	table := make(Table, len(records))
	for i, r := range records {
		dt := ParseDatetime(r.Date)
		table[i] = Record{
			Record:                r,
			Row:                   i,
			ResultCode3:           CanonicalResultCode(r.ResultCode),
			DateTime:              dt,
			Bucket:                SessionBucket(r.Session),
			WeekendOrHoliday:      IsWeekendOrHoliday(dt, holidays),
			T16Filled:             IsFilled(r.T16Answer),
			SamplingFilled:        IsFilled(r.Sampling),
			SamplingQFilled:       IsFilled(r.SamplingQ),
			InterviewRecordFilled: IsFilled(r.InterviewRecord),
		}
	}
	return table
}

// compareDateTime orders valid times chronologically and puts NotATime after
// every valid time.
func compareDateTime(a, b time.Time) int {
	switch {
	case a.IsZero() && b.IsZero():
		return 0
	case a.IsZero():
		return 1
	case b.IsZero():
		return -1
	}
	return a.Compare(b)
}

// compareVisit is the visit order of two records of the same table:
// (SampleID, DateTime, Row).
func compareVisit(a, b Record) int {
	return cmp.Or(
		cmp.Compare(a.SampleID, b.SampleID),
		compareDateTime(a.DateTime, b.DateTime),
		cmp.Compare(a.Row, b.Row),
	)
}

// SortedByVisit returns a copy of the table ordered by sample id, then visit
// datetime, then input order. Undated visits sort after dated visits of the
// same sample.
func (t Table) SortedByVisit() Table {
	sorted := slices.Clone(t)
	slices.SortStableFunc(sorted, compareVisit)
	return sorted
}

// Group is the records of one sample, in the order they had in the table
// they were grouped from.
type Group struct {
	SampleID string
	Records  Table
}

// Last returns the final record of the group.
func (g Group) Last() Record {
	return g.Records[len(g.Records)-1]
}

// GroupBySample groups the table by sample id. Groups are returned in order
// of each sample's first appearance and records keep their relative order.
func (t Table) GroupBySample() []Group {
	index := map[string]int{}
	var groups []Group
	for _, r := range t {
		i, ok := index[r.SampleID]
		if !ok {
			i = len(groups)
			index[r.SampleID] = i
			groups = append(groups, Group{SampleID: r.SampleID})
		}
		groups[i].Records = append(groups[i].Records, r)
	}
	return groups
}

// VisitGroups is GroupBySample over SortedByVisit, samples come out in
// ascending id order with each sample's visits in chronological order.
func (t Table) VisitGroups() []Group {
	return t.SortedByVisit().GroupBySample()
}
