// Package rules implements the fieldwork quality-control checks. Every rule
// family is a pure function from a normalized table to the issues it finds.
package rules

import "visitcheck/internal/normalize"

// Family identifies one of the four rule families.
type Family string

const (
	FamilyThreeVisits   Family = "I"
	FamilyQuestionnaire Family = "II"
	FamilyContent       Family = "III"
	FamilyLatestCode    Family = "IV"
)

var familyNames = map[Family]string{
	FamilyThreeVisits:   "三訪規則",
	FamilyQuestionnaire: "問卷填寫",
	FamilyContent:       "問卷內容",
	FamilyLatestCode:    "訪次檢查",
}

// Name is the human readable name of the family.
func (f Family) Name() string {
	return familyNames[f]
}

// Label is the category shown in reports, ex. "II.問卷填寫".
func (f Family) Label() string {
	return string(f) + "." + f.Name()
}

// Issue is a single flagged problem.
type Issue struct {
	SampleID        string
	InterviewerName string
	// Date is empty for issues about a sample as a whole.
	Date        string
	ResultCode  string
	Description string
	Family      Family
}

// Category is the report category of the issue.
func (i Issue) Category() string {
	return i.Family.Label()
}

// recordIssue creates an issue about a single visit.
func recordIssue(r normalize.Record, family Family, description string) Issue {
	return Issue{
		SampleID:        r.SampleID,
		InterviewerName: r.InterviewerName,
		Date:            r.Date,
		ResultCode:      r.ResultCode,
		Description:     description,
		Family:          family,
	}
}
