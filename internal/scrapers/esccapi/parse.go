package esccapi

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"visitcheck/internal/htmlutil"
	"visitcheck/internal/visit"

	"github.com/PuerkitoBio/goquery"
)

// sample ids are long numeric codes, shorter texts in the same cell are notes
const minSampleIDDigits = 11

func countDigits(s string) int {
	n := 0
	for _, c := range s {
		if unicode.IsDigit(c) {
			n++
		}
	}
	return n
}

// ParseWorkList returns the work items of a listing page, rows without a
// work id checkbox are skipped.
func ParseWorkList(doc *goquery.Document) []WorkItem {
	var items []WorkItem
	doc.Find("table tbody tr").Each(func(_ int, tr *goquery.Selection) {
		if tr.Find("td").Length() == 0 {
			return
		}

		workID := tr.Find("input[type=checkbox][value]").First().AttrOr("value", "")
		if workID == "" {
			return
		}

		sampleID := htmlutil.StrippedText(tr.Find("td div.small.mb-1").First(), "")
		if countDigits(sampleID) < minSampleIDDigits {
			sampleID = ""
		}

		var interviewerNo, interviewerName string
		badge := tr.Find("span.badge.bg-primary").First()
		parts := strings.Split(htmlutil.StrippedText(badge, " "), "/")
		if len(parts) == 2 {
			interviewerNo = strings.TrimSpace(parts[0])
			interviewerName = strings.TrimSpace(parts[1])
		}

		items = append(items, WorkItem{
			WorkID:          workID,
			SampleID:        sampleID,
			InterviewerNo:   interviewerNo,
			InterviewerName: interviewerName,
		})
	})
	return items
}

var pageQuery = regexp.MustCompile(`page=(\d+)`)

// ParseMaxPage returns the highest page number linked from the pagination,
// 1 when there is none.
func ParseMaxPage(ctx context.Context, doc *goquery.Document) int {
	maxPage := 1
	for _, a := range htmlutil.GetAnchors(ctx, doc.Find("ul.pagination a.page-link[href]")) {
		groups := pageQuery.FindStringSubmatch(a.Href)
		if groups == nil {
			continue
		}
		page, err := strconv.Atoi(groups[1])
		if err != nil {
			continue
		}
		maxPage = max(maxPage, page)
	}
	return maxPage
}

var isoDate = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// ParseVisits returns the rows of a work's visit table in page order.
func ParseVisits(doc *goquery.Document) []Visit {
	table := doc.Find("div.grid-table table.table").First()
	if table.Length() == 0 {
		return nil
	}

	var visits []Visit
	table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		tds := tr.Find("td")
		if tds.Length() < 5 {
			return
		}

		visits = append(visits, Visit{
			Date:    isoDate.FindString(htmlutil.StrippedText(tds.Eq(0), "")),
			Session: htmlutil.StrippedText(tds.Eq(1), ""),
			Code:    htmlutil.StrippedText(tds.Eq(2).Find("div.d-flex > div").First(), ""),
			ViewURL: tds.Eq(3).Find("a[href*='/form-result/view/']").First().AttrOr("href", ""),
			LogURL:  tds.Eq(4).Find("a[href*='/form-result/logs/']").First().AttrOr("href", ""),
		})
	})
	return visits
}

// questionRow finds the answer row of a question in a form result table.
// Rows have the question code in the first cell, the answer in the third
// and the answer time in the fourth.
func questionRow(table *goquery.Selection, code string) *goquery.Selection {
	var found *goquery.Selection
	table.Find("tbody tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		tds := tr.Find("td")
		if tds.Length() < 4 {
			return true
		}
		if strings.Contains(htmlutil.StrippedText(tds.Eq(0), " "), code) {
			found = tds
			return false
		}
		return true
	})
	return found
}

func resultTables(doc *goquery.Document) *goquery.Selection {
	return doc.Find("table.table.table-bordered")
}

// ParseContact reads the contact method (T03) from a visit's form result.
// The answers are in the second table, the first one being sample info,
// unless the page only has one.
func ParseContact(doc *goquery.Document) Contact {
	tables := resultTables(doc)
	var target *goquery.Selection
	switch {
	case tables.Length() >= 2:
		target = tables.Eq(1)
	case tables.Length() == 1:
		target = tables.Eq(0)
	default:
		return Contact{Answer: visit.NotDone}
	}

	tds := questionRow(target, "T03")
	if tds == nil {
		return Contact{Answer: visit.NotDone}
	}
	answer := htmlutil.StrippedText(tds.Eq(2), "")
	if answer == "" {
		answer = visit.NotDone
	}
	return Contact{
		Answer:     answer,
		AnsweredAt: htmlutil.StrippedText(tds.Eq(3), ""),
	}
}

// ParseT16 reads the T16 multi-select answer from a visit survey result.
// Every ticked option sits in its own div, they are joined with "; ".
func ParseT16(doc *goquery.Document) string {
	tables := resultTables(doc)
	if tables.Length() < 2 {
		return visit.NotDone
	}

	tds := questionRow(tables.Eq(1), "T16")
	if tds == nil {
		return visit.NotDone
	}

	cell := tds.Eq(2)
	var answers []string
	cell.Find("div").Each(func(_ int, div *goquery.Selection) {
		text := htmlutil.StrippedText(div, "")
		if text != "" {
			answers = append(answers, text)
		}
	})
	if len(answers) > 0 {
		return strings.Join(answers, "; ")
	}

	text := htmlutil.StrippedText(cell, "")
	if text == "" {
		return visit.NotDone
	}
	return text
}

// ParseFormStatus reads the result code of a questionnaire result page from
// its sample info table, a questionnaire is done when the code is 100.
func ParseFormStatus(doc *goquery.Document) string {
	tables := resultTables(doc)
	if tables.Length() == 0 {
		return visit.NotDone
	}

	status := visit.NotDone
	tables.First().Find("tbody tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		cells := tr.Find("th, td")
		if cells.Length() < 2 {
			return true
		}
		for i := 0; i < cells.Length()-1; i++ {
			cell := cells.Eq(i)
			if goquery.NodeName(cell) != "th" || !strings.Contains(htmlutil.StrippedText(cell, ""), "結果代碼") {
				continue
			}
			if htmlutil.StrippedText(cells.Eq(i+1), "") == "100" {
				status = visit.Done
			}
			return false
		}
		return true
	})
	return status
}

// ParseRecordForms returns the questionnaires listed on a work's record page.
func ParseRecordForms(doc *goquery.Document) []FormLink {
	var forms []FormLink
	doc.Find("table tbody tr").Each(func(_ int, tr *goquery.Selection) {
		tds := tr.Find("td")
		if tds.Length() < 3 {
			return
		}
		forms = append(forms, FormLink{
			Title: htmlutil.StrippedText(tds.Eq(1), ""),
			Href:  tds.Eq(2).Find("a[href*='/form-result/view/']").First().AttrOr("href", ""),
		})
	})
	return forms
}

// Kind classifies a form by its title.
func (f FormLink) Kind() FormKind {
	switch {
	case strings.Contains(f.Title, "訪視問卷"):
		return FormVisitSurvey
	case strings.Contains(f.Title, "戶中抽樣") && !strings.Contains(f.Title, "問卷"):
		return FormSampling
	case strings.Contains(f.Title, "戶抽問卷"):
		return FormSamplingQuestionnaire
	case strings.Contains(f.Title, "訪問記錄"):
		return FormInterviewRecord
	}
	return FormOther
}

// VisitSurveyURL returns the result link of the first visit survey form that
// has one.
func VisitSurveyURL(forms []FormLink) string {
	for _, f := range forms {
		if f.Kind() == FormVisitSurvey && f.Href != "" {
			return f.Href
		}
	}
	return ""
}
