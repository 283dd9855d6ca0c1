package rules

import (
	"fmt"
	"slices"
	"strings"

	"visitcheck/internal/normalize"
)

const requiredVisits = 3

// CheckThreeVisits flags samples whose latest result is a non-contact code
// ("2xx") but that were not retried enough: fewer than three visits, fewer
// than two distinct sessions of the day, or no weekend/holiday visit.
func CheckThreeVisits(table normalize.Table) []Issue {
	var issues []Issue
	for _, group := range table.VisitGroups() {
		lastCode := group.Last().ResultCode3
		if !strings.HasPrefix(lastCode, "2") {
			continue
		}

		missingVisits := max(0, requiredVisits-len(group.Records))

		present := map[normalize.Bucket]bool{}
		holidayVisits := 0
		for _, r := range group.Records {
			if r.Bucket != normalize.BucketUnknown {
				present[r.Bucket] = true
			}
			if r.WeekendOrHoliday {
				holidayVisits++
			}
		}
		missingHoliday := 1 - min(1, holidayVisits)

		var covered, missing []string
		for _, b := range normalize.Buckets {
			if present[b] {
				covered = append(covered, string(b))
			} else {
				missing = append(missing, string(b))
			}
		}
		slices.Sort(covered)

		if missingVisits == 0 && len(covered) >= 2 && missingHoliday == 0 {
			continue
		}

		issues = append(issues, Issue{
			SampleID:        group.SampleID,
			InterviewerName: interviewerMode(group.Records),
			Date:            "",
			ResultCode:      lastCode,
			Description: fmt.Sprintf(
				"【三訪規則】缺少訪次數:%d；缺少假日/週末訪次:%d；已涵蓋時段:%s；缺少時段:%s",
				missingVisits,
				missingHoliday,
				joinOrNone(covered),
				joinOrNone(missing),
			),
			Family: FamilyThreeVisits,
		})
	}
	return issues
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "無"
	}
	return strings.Join(values, "、")
}

// interviewerMode returns the most frequent interviewer name of the records,
// ties go to the name that sorts first.
func interviewerMode(records normalize.Table) string {
	counts := map[string]int{}
	for _, r := range records {
		counts[r.InterviewerName]++
	}

	mode := ""
	best := 0
	for name, n := range counts {
		if n > best || (n == best && name < mode) {
			mode = name
			best = n
		}
	}
	return mode
}
