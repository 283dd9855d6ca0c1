// Package normalize derives typed fields from the raw text of visit records.
package normalize

import (
	"regexp"
	"strings"
	"time"

	"visitcheck/internal/chrono"

	"github.com/araddon/dateparse"
)

var unfilledMarkers = map[string]struct{}{
	"未填寫":  {},
	"未填":   {},
	"NA":   {},
	"N/A":  {},
	"None": {},
	"null": {},
}

// IsFilled reports whether a text field holds a meaningful answer. Blank text
// and the "not provided" markers are unfilled, markers are case-sensitive.
func IsFilled(text string) bool {
	s := strings.TrimSpace(text)
	if s == "" {
		return false
	}
	_, unfilled := unfilledMarkers[s]
	return !unfilled
}

var decoratedCode = regexp.MustCompile(`^(\d+)\.0+$`)

// CanonicalResultCode strips a float-like decoration from a result code,
// "100.00" -> "100". Anything else is returned trimmed but otherwise as is.
func CanonicalResultCode(text string) string {
	s := strings.TrimSpace(text)
	if s == "" {
		return ""
	}
	groups := decoratedCode.FindStringSubmatch(s)
	if groups != nil {
		return groups[1]
	}
	return s
}

// datetimeLayouts are tried in order, the first successful parse wins.
var datetimeLayouts = []string{
	"2006/1/2 15:04:05",
	"2006-1-2 15:04:05",
	"2006/1/2",
	"2006-1-2",
	"1/2/2006 15:04",
	"1/2/2006",
}

// NotATime is the value of an unparseable datetime, check for it with IsZero.
var NotATime = time.Time{}

// ParseDatetime parses a visit date in the fieldwork time zone. It never
// fails: text that matches none of the known layouts goes through a
// permissive parser and anything still unparseable becomes NotATime.
func ParseDatetime(text string) time.Time {
	s := strings.TrimSpace(text)
	if s == "" {
		return NotATime
	}
	for _, layout := range datetimeLayouts {
		t, err := time.ParseInLocation(layout, s, chrono.Taipei())
		if err == nil {
			return t
		}
	}
	t, err := dateparse.ParseIn(s, chrono.Taipei())
	if err != nil {
		return NotATime
	}
	return t.In(chrono.Taipei())
}

// Bucket is a coarse time-of-day classification of a visit.
type Bucket string

const (
	BucketDay       Bucket = "白天"
	BucketAfternoon Bucket = "下午"
	BucketEvening   Bucket = "晚上"
	BucketUnknown   Bucket = "未知"
)

// Buckets lists the known buckets in their fixed order.
var Buckets = []Bucket{BucketDay, BucketAfternoon, BucketEvening}

type bucketKeywords struct {
	bucket   Bucket
	synonyms []string
	codes    []string
}

var sessionKeywords = []bucketKeywords{
	{
		bucket:   BucketDay,
		synonyms: []string{"白天", "上午", "早上", "日間", "白日"},
		codes:    []string{"D", "DAY"},
	},
	{
		bucket:   BucketAfternoon,
		synonyms: []string{"下午"},
		codes:    []string{"A", "AFTERNOON"},
	},
	{
		bucket:   BucketEvening,
		synonyms: []string{"晚上", "夜間", "夜晚"},
		codes:    []string{"E", "EVENING", "NIGHT"},
	},
}

// SessionBucket classifies a free-text session label. Synonyms match by
// substring in the order day, afternoon, evening, then single letter and
// English codes match the whole label case-insensitively.
func SessionBucket(text string) Bucket {
	s := strings.TrimSpace(text)
	for _, kw := range sessionKeywords {
		for _, syn := range kw.synonyms {
			if strings.Contains(s, syn) {
				return kw.bucket
			}
		}
	}
	upper := strings.ToUpper(s)
	for _, kw := range sessionKeywords {
		for _, code := range kw.codes {
			if upper == code {
				return kw.bucket
			}
		}
	}
	return BucketUnknown
}

// IsWeekendOrHoliday reports whether t falls on a Saturday, Sunday or a day in
// holidays. NotATime is never a weekend or holiday.
func IsWeekendOrHoliday(t time.Time, holidays HolidaySet) bool {
	if t.IsZero() {
		return false
	}
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return true
	}
	return holidays.Contains(t)
}
