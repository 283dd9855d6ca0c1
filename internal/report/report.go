// Package report groups issues by interviewer and writes them out as
// spreadsheet friendly tables.
package report

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"visitcheck/internal/rules"
	"visitcheck/internal/visit"
)

const (
	SummaryFile = "check_summary_by_interviewer.csv"
	// AllInterviewers names the summary row of a run without issues.
	AllInterviewers = "全部"
)

var (
	IssueColumns   = []string{"樣本編號", "日期", "結果代碼", "問題描述", "檢查類別"}
	SummaryColumns = []string{"訪員姓名", "違規總數"}
)

// InterviewerIssues are the issues attributed to one interviewer.
type InterviewerIssues struct {
	InterviewerName string
	Issues          []rules.Issue
}

// SummaryRow is the issue count of one interviewer.
type SummaryRow struct {
	InterviewerName string
	Count           int
}

// Group groups issues by interviewer name in ascending name order. The issues
// of a group are stably sorted by sample id then date.
func Group(issues []rules.Issue) []InterviewerIssues {
	byName := map[string][]rules.Issue{}
	for _, issue := range issues {
		byName[issue.InterviewerName] = append(byName[issue.InterviewerName], issue)
	}

	groups := make([]InterviewerIssues, 0, len(byName))
	for name, list := range byName {
		slices.SortStableFunc(list, func(a, b rules.Issue) int {
			return cmp.Or(
				cmp.Compare(a.SampleID, b.SampleID),
				cmp.Compare(a.Date, b.Date),
			)
		})
		groups = append(groups, InterviewerIssues{InterviewerName: name, Issues: list})
	}
	slices.SortFunc(groups, func(a, b InterviewerIssues) int {
		return cmp.Compare(a.InterviewerName, b.InterviewerName)
	})
	return groups
}

// Summarize counts issues per interviewer, most issues first and ties in
// ascending name order. A run without issues summarizes to a single
// {"全部", 0} row.
func Summarize(issues []rules.Issue) []SummaryRow {
	if len(issues) == 0 {
		return []SummaryRow{{InterviewerName: AllInterviewers, Count: 0}}
	}

	counts := map[string]int{}
	for _, issue := range issues {
		counts[issue.InterviewerName]++
	}
	rows := make([]SummaryRow, 0, len(counts))
	for name, n := range counts {
		rows = append(rows, SummaryRow{InterviewerName: name, Count: n})
	}
	slices.SortFunc(rows, func(a, b SummaryRow) int {
		return cmp.Or(
			cmp.Compare(b.Count, a.Count),
			cmp.Compare(a.InterviewerName, b.InterviewerName),
		)
	})
	return rows
}

var unsafeChars = regexp.MustCompile(`[\\/:*?"<>|]`)

// SanitizeName makes an interviewer name safe to use in a file name.
func SanitizeName(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// uniqueNames maps every name through transform and disambiguates collisions
// with a numeric suffix, keeping the result within limit runes (0 for no
// limit). Names that differ only by case collide, since sheet names and
// some file systems ignore case.
func uniqueNames(names []string, transform func(string) string, limit int) []string {
	truncate := func(s string) string {
		if limit <= 0 {
			return s
		}
		runes := []rune(s)
		if len(runes) <= limit {
			return s
		}
		return string(runes[:limit])
	}

	seen := map[string]bool{}
	out := make([]string, len(names))
	for i, name := range names {
		base := truncate(transform(name))
		candidate := base
		for n := 2; seen[strings.ToLower(candidate)]; n++ {
			suffix := "_" + strconv.Itoa(n)
			if limit > 0 {
				runes := []rune(base)
				keep := min(len(runes), limit-len(suffix))
				candidate = string(runes[:keep]) + suffix
			} else {
				candidate = base + suffix
			}
		}
		seen[strings.ToLower(candidate)] = true
		out[i] = candidate
	}
	return out
}

func issueRow(issue rules.Issue) []string {
	return []string{issue.SampleID, issue.Date, issue.ResultCode, issue.Description, issue.Category()}
}

func summaryRow(row SummaryRow) []string {
	return []string{row.InterviewerName, strconv.Itoa(row.Count)}
}

func writeTable(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := visit.NewBOMWriter(f)
	if err != nil {
		return err
	}
	err = w.Write(header)
	if err != nil {
		return err
	}
	err = w.WriteAll(rows)
	if err != nil {
		return err
	}
	return f.Close()
}

// InterviewerFile is the name of the report file of an interviewer.
func InterviewerFile(sanitized string) string {
	return fmt.Sprintf("interviewer_%s.csv", sanitized)
}

// removeInterviewerFiles deletes the per interviewer reports of an earlier
// run so they are not mistaken for this run's.
func removeInterviewerFiles(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "interviewer_") || !strings.HasSuffix(name, ".csv") {
			continue
		}
		err = os.Remove(filepath.Join(dir, name))
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteDir writes one report per interviewer and the summary into dir,
// creating it if needed. Interviewer reports left in dir by an earlier run
// are removed. It returns the paths written, summary last.
func WriteDir(dir string, issues []rules.Issue) ([]string, error) {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	err = removeInterviewerFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("clear old reports: %w", err)
	}

	groups := Group(issues)
	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.InterviewerName
	}
	files := uniqueNames(names, SanitizeName, 0)

	var written []string
	for i, g := range groups {
		rows := make([][]string, len(g.Issues))
		for j, issue := range g.Issues {
			rows[j] = issueRow(issue)
		}
		path := filepath.Join(dir, InterviewerFile(files[i]))
		err = writeTable(path, IssueColumns, rows)
		if err != nil {
			return written, fmt.Errorf("write report of %q: %w", g.InterviewerName, err)
		}
		written = append(written, path)
	}

	summary := Summarize(issues)
	rows := make([][]string, len(summary))
	for i, row := range summary {
		rows[i] = summaryRow(row)
	}
	path := filepath.Join(dir, SummaryFile)
	err = writeTable(path, SummaryColumns, rows)
	if err != nil {
		return written, fmt.Errorf("write summary: %w", err)
	}
	written = append(written, path)

	return written, nil
}
