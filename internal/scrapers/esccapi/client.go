// Package esccapi scrapes survey work, visits and questionnaire results from
// the fieldwork administration portal.
package esccapi

import (
	"bytes"
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	"visitcheck/internal/assert"
	"visitcheck/internal/restyutil"
	"visitcheck/internal/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_client_work_list    = "client.work-list"
	report_client_visits       = "client.visits"
	report_client_record_forms = "client.record-forms"
	report_client_form_result  = "client.form-result"
)

type Config struct {
	BaseURL string
	// Cookie is the Cookie header of a logged in portal session.
	Cookie  string
	Project int
	Wave    int
	Timeout time.Duration
	// RequestsPerSecond limits the request rate, 0 means unlimited.
	RequestsPerSecond float64
	// DumpDir receives a copy of every response when set.
	DumpDir string
}

type Client struct {
	baseURL *url.URL
	http    *resty.Client
	project int
	wave    int
	tel     telemetry.API
}

func NewClient(cfg Config, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)
	assert.NotEmptyStr(cfg.BaseURL)

	tel = telemetry.NewScopedAPI("esccapi", tel)

	parsedBaseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(cfg.BaseURL)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)

	httpClient.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	if cfg.Cookie != "" {
		httpClient.SetHeader("Cookie", cfg.Cookie)
	}
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(parsedBaseURL.Hostname()))
	httpClient.SetTimeout(cfg.Timeout)

	if cfg.RequestsPerSecond > 0 {
		// max burst >= 1 just means that no requests will be dropped
		rateLimiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(1, int(cfg.RequestsPerSecond)))
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, tel)

	if cfg.DumpDir != "" {
		output, err := restyutil.NewFilesystemOutput(cfg.DumpDir)
		if err != nil {
			return nil, err
		}
		restyutil.DumpResponses(httpClient, output)
	}

	return &Client{
		baseURL: parsedBaseURL,
		http:    httpClient,
		project: cfg.Project,
		wave:    cfg.Wave,
		tel:     tel,
	}, nil
}

// Resolve makes an href found on a portal page absolute, an empty href stays
// empty.
func (c *Client) Resolve(href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return c.baseURL.ResolveReference(ref).String()
}

func (c *Client) listPath() string {
	return fmt.Sprintf("/admin/project/%d/wave/%d/survey-work/list", c.project, c.wave)
}

func (c *Client) editPath(workID string) string {
	return fmt.Sprintf("/admin/project/%d/wave/%d/survey-work/edit/%s", c.project, c.wave, url.PathEscape(workID))
}

// VisitPageURL is the absolute url of a work's visit table.
func (c *Client) VisitPageURL(workID string) string {
	return c.Resolve(c.editPath(workID) + "/visit")
}

// StatusError is returned when the portal answers with an error status
// instead of a page.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

func (c *Client) document(ctx context.Context, req *resty.Request, link string) (*goquery.Document, error) {
	res, err := req.SetContext(ctx).Get(link)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, &StatusError{URL: link, StatusCode: res.StatusCode(), Status: res.Status()}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", link, err)
	}
	return doc, nil
}

func (c *Client) listPage(ctx context.Context, page int) (*goquery.Document, error) {
	return c.document(
		ctx,
		c.http.R().SetQueryParam("page", strconv.Itoa(page)),
		c.listPath(),
	)
}

// WorkItems returns every work item of the project wave in listing order.
// The first page decides the page count. A later page that fails is
// reported and skipped.
func (c *Client) WorkItems(ctx context.Context) ([]WorkItem, error) {
	doc, err := c.listPage(ctx, 1)
	if err != nil {
		err = fmt.Errorf("fetch work list: %w", err)
		c.tel.ReportBroken(report_client_work_list, err)
		return nil, err
	}

	items := ParseWorkList(doc)
	maxPage := ParseMaxPage(ctx, doc)
	c.tel.ReportDebug(report_client_work_list, "pages", maxPage)

	for page := 2; page <= maxPage; page++ {
		doc, err := c.listPage(ctx, page)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			c.tel.ReportWarning(report_client_work_list, fmt.Errorf("fetch page %d: %w", page, err))
			continue
		}
		items = append(items, ParseWorkList(doc)...)
	}

	c.tel.ReportCount(report_client_work_list, int64(len(items)))
	return items, nil
}

// Visits returns the visit table of a work.
func (c *Client) Visits(ctx context.Context, workID string) ([]Visit, error) {
	doc, err := c.document(ctx, c.http.R(), c.editPath(workID)+"/visit")
	if err != nil {
		err = fmt.Errorf("fetch visits of %s: %w", workID, err)
		c.tel.ReportBroken(report_client_visits, err)
		return nil, err
	}
	return ParseVisits(doc), nil
}

// RecordForms returns the questionnaires listed on a work's record page.
func (c *Client) RecordForms(ctx context.Context, workID string) ([]FormLink, error) {
	doc, err := c.document(ctx, c.http.R(), c.editPath(workID)+"/record")
	if err != nil {
		err = fmt.Errorf("fetch record page of %s: %w", workID, err)
		c.tel.ReportBroken(report_client_record_forms, err)
		return nil, err
	}
	return ParseRecordForms(doc), nil
}

func (c *Client) formResult(ctx context.Context, href string) (*goquery.Document, error) {
	doc, err := c.document(ctx, c.http.R(), c.Resolve(href))
	if err != nil {
		err = fmt.Errorf("fetch form result: %w", err)
		c.tel.ReportWarning(report_client_form_result, err)
		return nil, err
	}
	return doc, nil
}

// Contact fetches a visit's form result and reads its contact method.
func (c *Client) Contact(ctx context.Context, viewHref string) (Contact, error) {
	doc, err := c.formResult(ctx, viewHref)
	if err != nil {
		return Contact{}, err
	}
	return ParseContact(doc), nil
}

// T16Answer fetches a visit survey result and reads its T16 answer.
func (c *Client) T16Answer(ctx context.Context, surveyHref string) (string, error) {
	doc, err := c.formResult(ctx, surveyHref)
	if err != nil {
		return "", err
	}
	return ParseT16(doc), nil
}

// FormStatus fetches a questionnaire result and reports whether it is done.
func (c *Client) FormStatus(ctx context.Context, href string) (string, error) {
	doc, err := c.formResult(ctx, href)
	if err != nil {
		return "", err
	}
	return ParseFormStatus(doc), nil
}
