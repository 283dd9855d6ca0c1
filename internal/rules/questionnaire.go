package rules

import (
	"visitcheck/internal/normalize"
)

func codeSet(codes ...string) map[string]bool {
	set := make(map[string]bool, len(codes))
	for _, c := range codes {
		set[c] = true
	}
	return set
}

const successCode = "100"

var (
	// forbiddenCodes should not have household sampling or the follow-up
	// questionnaires filled in.
	forbiddenCodes = codeSet(
		"202", "206", "207", "302", "303", "304", "311", "312", "313", "324", "329",
	)

	// mustHaveSamplingCodes require household sampling and the sampling
	// questionnaire to be done.
	mustHaveSamplingCodes = codeSet(
		"201", "203", "204", "205", "301", "305", "306", "307", "309", "310",
		"311", "314", "315", "316", "317", "318", "319", "320", "321", "322",
		"325", "326", "331",
	)

	// allowedNewerCodes justify questionnaires filled on an earlier visit of
	// the same sample.
	allowedNewerCodes = func() map[string]bool {
		set := codeSet(successCode)
		for c := range mustHaveSamplingCodes {
			set[c] = true
		}
		return set
	}()
)

const (
	msgUnexpectedQuestionnaire = "【問卷填寫】無結果代碼卻出現訪視問卷/戶抽/戶抽問卷/訪問記錄問卷"
	msgVisitSurveyMissing      = "【問卷填寫】訪視問卷未填"
	msgForbiddenQuestionnaire  = "【問卷填寫】此結果代碼不應有戶抽/填戶抽問卷/訪問記錄問卷，請重新檢查"
	msgSamplingMissing         = "【問卷填寫】此代碼需戶抽與填戶抽問卷"
	msgSuccessIncomplete       = "【問卷填寫】為成功樣本，但有資料未填寫完成"
)

// futureAllowed returns, for every record of the visit ordered table, whether
// a later record of the same sample has a code in allowedNewerCodes. It is a
// single reverse pass carrying a running flag that is reset whenever the
// sample id changes.
func futureAllowed(sorted normalize.Table) []bool {
	out := make([]bool, len(sorted))
	flag := false
	for i := len(sorted) - 1; i >= 0; i-- {
		if i == len(sorted)-1 || sorted[i].SampleID != sorted[i+1].SampleID {
			flag = false
		}
		out[i] = flag
		if allowedNewerCodes[sorted[i].ResultCode3] {
			flag = true
		}
	}
	return out
}

// CheckQuestionnaires checks that the questionnaires filled in for a visit are
// consistent with the visit's result code.
func CheckQuestionnaires(table normalize.Table) []Issue {
	sorted := table.SortedByVisit()

	sampleHas100 := map[string]bool{}
	for _, r := range sorted {
		if r.ResultCode3 == successCode {
			sampleHas100[r.SampleID] = true
		}
	}
	hasFutureAllowed := futureAllowed(sorted)

	var issues []Issue
	for i, r := range sorted {
		if !normalize.IsFilled(r.ResultCode) {
			if r.T16Filled || r.SamplingFilled || r.SamplingQFilled || r.InterviewRecordFilled {
				issues = append(issues, recordIssue(r, FamilyQuestionnaire, msgUnexpectedQuestionnaire))
			}
			continue
		}

		if !r.T16Filled {
			issues = append(issues, recordIssue(r, FamilyQuestionnaire, msgVisitSurveyMissing))
		}

		// a later allowed code and a successful visit anywhere in the sample
		// are separate reasons to accept the questionnaires
		if forbiddenCodes[r.ResultCode3] &&
			(r.SamplingFilled || r.SamplingQFilled || r.InterviewRecordFilled) &&
			!hasFutureAllowed[i] &&
			!sampleHas100[r.SampleID] {
			issues = append(issues, recordIssue(r, FamilyQuestionnaire, msgForbiddenQuestionnaire))
		}

		if mustHaveSamplingCodes[r.ResultCode3] && !(r.SamplingFilled && r.SamplingQFilled) {
			issues = append(issues, recordIssue(r, FamilyQuestionnaire, msgSamplingMissing))
		}
	}

	for _, group := range sorted.GroupBySample() {
		last := group.Last()
		if last.ResultCode3 != successCode {
			continue
		}
		if last.T16Filled && last.SamplingFilled && last.SamplingQFilled && last.InterviewRecordFilled {
			continue
		}
		issues = append(issues, recordIssue(last, FamilyQuestionnaire, msgSuccessIncomplete))
	}

	return issues
}
