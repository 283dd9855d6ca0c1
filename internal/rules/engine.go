package rules

import (
	"fmt"
	"runtime/debug"

	"visitcheck/internal/normalize"
	"visitcheck/internal/telemetry"
)

const (
	report_engine_check = "engine.check"
	report_engine_count = "engine.issues"
)

// Check is a single rule family.
type Check struct {
	Family Family
	Run    func(normalize.Table) []Issue
}

// Checks are the rule families in the order their issues are reported.
var Checks = []Check{
	{Family: FamilyThreeVisits, Run: CheckThreeVisits},
	{Family: FamilyQuestionnaire, Run: CheckQuestionnaires},
	{Family: FamilyContent, Run: CheckContent},
	{Family: FamilyLatestCode, Run: CheckLatestCode},
}

// Failure is a rule family that could not be evaluated.
type Failure struct {
	Family Family
	Err    error
}

// Result is the outcome of running the rule families over a table.
type Result struct {
	Issues   []Issue
	Failures []Failure
}

// Ok reports whether every family was evaluated.
func (r Result) Ok() bool {
	return len(r.Failures) == 0
}

func runIsolated(check Check, table normalize.Table) (issues []Issue, err error) {
	defer func() {
		recovered := recover()
		if recovered != nil {
			issues = nil
			err = fmt.Errorf("rule %s panicked: %v\n%s", check.Family.Label(), recovered, debug.Stack())
		}
	}()
	return check.Run(table), nil
}

// Run evaluates the given checks over the table. A family that panics is
// recorded as a Failure and does not keep the other families from running.
func Run(table normalize.Table, checks []Check, tel telemetry.API) Result {
	var result Result
	for _, check := range checks {
		issues, err := runIsolated(check, table)
		if err != nil {
			tel.ReportBroken(report_engine_check, err)
			result.Failures = append(result.Failures, Failure{Family: check.Family, Err: err})
			continue
		}
		tel.ReportDebug(report_engine_check, check.Family.Label(), len(issues))
		result.Issues = append(result.Issues, issues...)
	}
	tel.ReportCount(report_engine_count, int64(len(result.Issues)))
	return result
}

// RunAll evaluates every rule family.
func RunAll(table normalize.Table, tel telemetry.API) Result {
	return Run(table, Checks, tel)
}
