package rules

import (
	"fmt"

	"visitcheck/internal/normalize"
)

// reviewCodes are final result codes the interviewer has to explain.
var reviewCodes = codeSet(
	"305", "314", "315", "316", "317", "318", "319", "320",
	"321", "322", "323", "324", "326", "329", "330", "331",
)

// CheckLatestCode asks for an explanation of every sample whose latest visit
// ended with a code in reviewCodes.
func CheckLatestCode(table normalize.Table) []Issue {
	var issues []Issue
	for _, group := range table.VisitGroups() {
		last := group.Last()
		if !reviewCodes[last.ResultCode3] {
			continue
		}
		issues = append(issues, recordIssue(
			last,
			FamilyLatestCode,
			fmt.Sprintf("【訪次檢查】訪次結果代碼=%s，請說明接觸情形", last.ResultCode3),
		))
	}
	return issues
}
