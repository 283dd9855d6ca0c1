package rules

import (
	"regexp"
	"strings"

	"visitcheck/internal/normalize"
)

const (
	keywordGuard    = "警衛"
	keywordIntercom = "對講機"

	// T16 options for the two contact methods that must be ticked
	optionIntercom = "2"
	optionGuard    = "3"

	codeContactedViaGuard = "304"
)

// codes for a refusal relayed by a public official
var publicOfficialCodes = codeSet("311", "312")

var publicOfficialKeywords = []string{"鄰里長", "里長", "員警", "警察", "郵差", "公職人員", keywordGuard}

const (
	msgGuardNotInSurvey    = "【問卷內容】接觸方式為警衛，但訪視問卷未包含『警衛或管理員』"
	msgIntercomNotInSurvey = "【問卷內容】接觸方式為對講機，但訪視問卷未包含『對講機』"
	msgGuardCodeMismatch   = "【問卷內容】結果代碼為304，但接觸方式並非『警衛』"
	msgOfficialMismatch    = "【問卷內容】結果代碼為311或312，但接觸方式非公職人員（鄰里長/員警/郵差等）"
)

var optionPrefix = regexp.MustCompile(`(\d+)\s*:`)

// SurveyOptions returns the coded options of a multi-select answer such as
// "1: 本人; 3: 警衛或管理員".
func SurveyOptions(answer string) map[string]bool {
	options := map[string]bool{}
	for _, groups := range optionPrefix.FindAllStringSubmatch(answer, -1) {
		options[groups[1]] = true
	}
	return options
}

func isGuardContact(contact string) bool {
	return strings.Contains(contact, keywordGuard)
}

func isPublicOfficialContact(contact string) bool {
	for _, kw := range publicOfficialKeywords {
		if strings.Contains(contact, kw) {
			return true
		}
	}
	return false
}

// CheckContent cross-validates the contact method of a visit against its
// visit survey answer and result code. Records are checked independently in
// table order and a record may produce several issues.
func CheckContent(table normalize.Table) []Issue {
	var issues []Issue
	for _, r := range table {
		contact := strings.TrimSpace(r.ContactMethod)
		t16 := strings.TrimSpace(r.T16Answer)
		options := SurveyOptions(t16)

		if isGuardContact(contact) && !options[optionGuard] && !strings.Contains(t16, keywordGuard) {
			issues = append(issues, recordIssue(r, FamilyContent, msgGuardNotInSurvey))
		}

		if strings.Contains(contact, keywordIntercom) && !options[optionIntercom] && !strings.Contains(t16, keywordIntercom) {
			issues = append(issues, recordIssue(r, FamilyContent, msgIntercomNotInSurvey))
		}

		if r.ResultCode3 == codeContactedViaGuard && !isGuardContact(contact) {
			issues = append(issues, recordIssue(r, FamilyContent, msgGuardCodeMismatch))
		}

		if publicOfficialCodes[r.ResultCode3] && !isPublicOfficialContact(contact) {
			issues = append(issues, recordIssue(r, FamilyContent, msgOfficialMismatch))
		}
	}
	return issues
}
