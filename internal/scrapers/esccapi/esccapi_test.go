package esccapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"visitcheck/internal/testutil"
	"visitcheck/internal/visit"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func parse(t testing.TB, page string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)
	return doc
}

func listPage(rows string, pages ...int) string {
	var pagination strings.Builder
	for _, p := range pages {
		fmt.Fprintf(&pagination, `<li><a class="page-link" href="?page=%d">%d</a></li>`, p, p)
	}
	return fmt.Sprintf(`<html><body>
<table><tbody>%s</tbody></table>
<ul class="pagination">%s</ul>
</body></html>`, rows, pagination.String())
}

func listRow(workID, sampleID, badge string) string {
	return fmt.Sprintf(`<tr>
	<td><input type="checkbox" value="%s"></td>
	<td><div class="small mb-1"> %s </div><div class="small">備註</div></td>
	<td><span class="badge bg-primary">%s</span></td>
</tr>`, workID, sampleID, badge)
}

const visitPage = `<html><body><div class="grid-table"><table class="table"><tbody>
<tr>
	<td>2025-03-01 (六)</td>
	<td> 上午 </td>
	<td><div class="d-flex"><div>201</div><i>icon</i></div></td>
	<td><a href="/form-result/view/11">觀看</a></td>
	<td><a href="/form-result/logs/11">紀錄</a></td>
</tr>
<tr>
	<td>待補</td>
	<td>晚上</td>
	<td><div class="d-flex"><div>100</div></div></td>
	<td></td>
	<td><a href="/form-result/logs/12">紀錄</a></td>
</tr>
<tr><td>too</td><td>short</td></tr>
</tbody></table></div></body></html>`

func formResult(info, answers string) string {
	return fmt.Sprintf(`<html><body>
<table class="table table-bordered"><tbody>%s</tbody></table>
<table class="table table-bordered"><tbody>%s</tbody></table>
</body></html>`, info, answers)
}

func question(code, answer, at string) string {
	return fmt.Sprintf(`<tr><td><b>%s</b> 題目</td><td>說明</td><td>%s</td><td>%s</td></tr>`, code, answer, at)
}

const recordPage = `<html><body><table><tbody>
<tr><td>1</td><td>TEDS2025_訪視問卷</td><td><a href="/form-result/view/21">問卷結果</a></td></tr>
<tr><td>2</td><td>戶中抽樣</td><td><a href="/form-result/view/22">問卷結果</a></td></tr>
<tr><td>3</td><td>戶抽問卷</td><td><a href="/form-result/view/23">問卷結果</a></td></tr>
<tr><td>4</td><td>訪問記錄問卷</td><td></td></tr>
</tbody></table></body></html>`

func TestParseWorkList(t *testing.T) {
	doc := parse(t, listPage(
		listRow("101", "12345678901", "A01 / 王小明")+
			listRow("102", "123", "A02/李大同")+
			listRow("103", "98765432109", "沒有分隔")+
			`<tr><td>no checkbox</td></tr>`,
		2, 3, 2,
	))

	expected := []WorkItem{
		{WorkID: "101", SampleID: "12345678901", InterviewerNo: "A01", InterviewerName: "王小明"},
		{WorkID: "102", SampleID: "", InterviewerNo: "A02", InterviewerName: "李大同"},
		{WorkID: "103", SampleID: "98765432109"},
	}
	if diff := cmp.Diff(expected, ParseWorkList(doc)); diff != "" {
		t.Fatal(diff)
	}
	require.Equal(t, 3, ParseMaxPage(context.Background(), doc))
	require.Equal(t, 1, ParseMaxPage(context.Background(), parse(t, listPage(""))))
}

func TestParseVisits(t *testing.T) {
	expected := []Visit{
		{Date: "2025-03-01", Session: "上午", Code: "201", ViewURL: "/form-result/view/11", LogURL: "/form-result/logs/11"},
		{Date: "", Session: "晚上", Code: "100", LogURL: "/form-result/logs/12"},
	}
	if diff := cmp.Diff(expected, ParseVisits(parse(t, visitPage))); diff != "" {
		t.Fatal(diff)
	}
	require.Empty(t, ParseVisits(parse(t, "<html></html>")))
}

func TestParseContact(t *testing.T) {
	doc := parse(t, formResult("", question("T02", "x", "")+question("T03", "警衛", "2025-03-01 10:00")))
	require.Equal(t, Contact{Answer: "警衛", AnsweredAt: "2025-03-01 10:00"}, ParseContact(doc))

	doc = parse(t, formResult("", question("T03", "", "2025-03-01 10:00")))
	require.Equal(t, Contact{Answer: visit.NotDone, AnsweredAt: "2025-03-01 10:00"}, ParseContact(doc))

	single := `<table class="table table-bordered"><tbody>` + question("T03", "本人", "t") + `</tbody></table>`
	require.Equal(t, Contact{Answer: "本人", AnsweredAt: "t"}, ParseContact(parse(t, single)))

	require.Equal(t, Contact{Answer: visit.NotDone}, ParseContact(parse(t, formResult("", question("T04", "x", "")))))
	require.Equal(t, Contact{Answer: visit.NotDone}, ParseContact(parse(t, "<html></html>")))
}

func TestParseT16(t *testing.T) {
	doc := parse(t, formResult("", question("T16", "<div>1: 本人</div><div> </div><div>3: 警衛或管理員</div>", "")))
	require.Equal(t, "1: 本人; 3: 警衛或管理員", ParseT16(doc))

	doc = parse(t, formResult("", question("T16", "2: 對講機", "")))
	require.Equal(t, "2: 對講機", ParseT16(doc))

	doc = parse(t, formResult("", question("T16", "", "")))
	require.Equal(t, visit.NotDone, ParseT16(doc))

	// the answers live in the second table
	single := `<table class="table table-bordered"><tbody>` + question("T16", "1: 本人", "") + `</tbody></table>`
	require.Equal(t, visit.NotDone, ParseT16(parse(t, single)))
}

func TestParseFormStatus(t *testing.T) {
	done := formResult(`<tr><th>樣本編號</th><td>1</td><th>結果代碼</th><td>100</td></tr>`, "")
	require.Equal(t, visit.Done, ParseFormStatus(parse(t, done)))

	notDone := formResult(`<tr><th>結果代碼</th><td>201</td></tr>`, "")
	require.Equal(t, visit.NotDone, ParseFormStatus(parse(t, notDone)))

	require.Equal(t, visit.NotDone, ParseFormStatus(parse(t, "<html></html>")))
}

func TestParseRecordForms(t *testing.T) {
	forms := ParseRecordForms(parse(t, recordPage))
	require.Len(t, forms, 4)
	require.Equal(t, []FormKind{FormVisitSurvey, FormSampling, FormSamplingQuestionnaire, FormInterviewRecord}, []FormKind{
		forms[0].Kind(), forms[1].Kind(), forms[2].Kind(), forms[3].Kind(),
	})
	require.Equal(t, "", forms[3].Href)
	require.Equal(t, "/form-result/view/21", VisitSurveyURL(forms))
	require.Equal(t, "", VisitSurveyURL(forms[1:]))
}

func TestClient(t *testing.T) {
	var cookiesMutex sync.Mutex
	var cookies []string
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/project/7/wave/2/survey-work/list", func(w http.ResponseWriter, r *http.Request) {
		cookiesMutex.Lock()
		cookies = append(cookies, r.Header.Get("Cookie"))
		cookiesMutex.Unlock()
		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprint(w, listPage(listRow("101", "12345678901", "A01/王小明"), 2, 3))
		case "2":
			http.Error(w, "boom", http.StatusInternalServerError)
		case "3":
			fmt.Fprint(w, listPage(listRow("103", "12345678903", "A03/張三")))
		}
	})
	mux.HandleFunc("/admin/project/7/wave/2/survey-work/edit/101/visit", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, visitPage)
	})
	mux.HandleFunc("/admin/project/7/wave/2/survey-work/edit/101/record", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, recordPage)
	})
	mux.HandleFunc("/form-result/view/11", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, formResult("", question("T03", "對講機", "10:00")))
	})
	mux.HandleFunc("/form-result/view/21", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, formResult("", question("T16", "<div>2: 對講機</div>", "")))
	})
	mux.HandleFunc("/form-result/view/22", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, formResult(`<tr><th>結果代碼</th><td>100</td></tr>`, ""))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	tel := &testutil.Telemetry{}
	client, err := NewClient(Config{
		BaseURL: server.URL,
		Cookie:  "session=abc",
		Project: 7,
		Wave:    2,
		Timeout: 5 * time.Second,
	}, tel)
	require.NoError(t, err)
	ctx := context.Background()

	items, err := client.WorkItems(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"101", "103"}, []string{items[0].WorkID, items[1].WorkID})
	require.True(t, tel.HasReport("warning", report_client_work_list))
	cookiesMutex.Lock()
	require.Equal(t, []string{"session=abc", "session=abc", "session=abc"}, cookies)
	cookiesMutex.Unlock()

	visits, err := client.Visits(ctx, "101")
	require.NoError(t, err)
	require.Len(t, visits, 2)
	require.Equal(t, server.URL+"/admin/project/7/wave/2/survey-work/edit/101/visit", client.VisitPageURL("101"))

	contact, err := client.Contact(ctx, visits[0].ViewURL)
	require.NoError(t, err)
	require.Equal(t, Contact{Answer: "對講機", AnsweredAt: "10:00"}, contact)

	forms, err := client.RecordForms(ctx, "101")
	require.NoError(t, err)
	answer, err := client.T16Answer(ctx, VisitSurveyURL(forms))
	require.NoError(t, err)
	require.Equal(t, "2: 對講機", answer)

	status, err := client.FormStatus(ctx, forms[1].Href)
	require.NoError(t, err)
	require.Equal(t, visit.Done, status)

	_, err = client.Visits(ctx, "missing")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	require.True(t, tel.HasReport("broken", report_client_visits))

	require.Equal(t, server.URL+"/form-result/view/11", client.Resolve("/form-result/view/11"))
	require.Equal(t, "", client.Resolve(""))
}
