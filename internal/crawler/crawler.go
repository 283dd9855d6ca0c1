// Package crawler turns the portal's survey work into visit records.
package crawler

import (
	"context"
	"errors"
	"fmt"

	"visitcheck/internal/assert"
	"visitcheck/internal/scrapers/esccapi"
	"visitcheck/internal/telemetry"
	"visitcheck/internal/visit"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("visitcheck.internal.crawler")
var meter = otel.Meter("visitcheck.internal.crawler")
var worksCounter, _ = meter.Int64Counter(
	"crawler.works_processed",
	metric.WithDescription("survey works crawled, by outcome"),
)

const (
	report_crawler_crawl    = "crawler.crawl"
	report_crawler_work     = "crawler.work"
	report_crawler_progress = "crawler.progress"
	report_crawler_records  = "crawler.records"
)

// DefaultWorkers is the size of the worker pool when none is configured.
const DefaultWorkers = 15

// Source is the portal a crawl reads from, implemented by *esccapi.Client.
type Source interface {
	WorkItems(ctx context.Context) ([]esccapi.WorkItem, error)
	Visits(ctx context.Context, workID string) ([]esccapi.Visit, error)
	RecordForms(ctx context.Context, workID string) ([]esccapi.FormLink, error)
	Contact(ctx context.Context, viewHref string) (esccapi.Contact, error)
	T16Answer(ctx context.Context, surveyHref string) (string, error)
	FormStatus(ctx context.Context, href string) (string, error)
	VisitPageURL(workID string) string
	Resolve(href string) string
}

type Crawler struct {
	src     Source
	workers int
	tel     telemetry.API
}

func New(src Source, workers int, tel telemetry.API) *Crawler {
	assert.NotNil(src)
	assert.NotNil(tel)
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Crawler{
		src:     src,
		workers: workers,
		tel:     telemetry.NewScopedAPI("crawler", tel),
	}
}

// Crawl fetches every work item and returns their visit records. Records are
// in listing order whatever order the workers finish in. A work that fails
// is reported and contributes no records. Only a failure to list the work
// items or a cancelled ctx fails the crawl.
func (c *Crawler) Crawl(ctx context.Context) ([]visit.Record, error) {
	ctx, span := tracer.Start(ctx, "Crawl")
	defer span.End()

	items, err := c.src.WorkItems(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list work items")
		c.tel.ReportBroken(report_crawler_crawl, err)
		return nil, fmt.Errorf("list work items: %w", err)
	}
	span.SetAttributes(attribute.Int("works", len(items)))

	results := make([][]visit.Record, len(items))

	group := errgroup.Group{}
	group.SetLimit(c.workers)
	for i, item := range items {
		if ctx.Err() != nil {
			break
		}
		group.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			records, err := c.crawlWork(ctx, item)
			if err != nil {
				c.tel.ReportBroken(report_crawler_work, item.WorkID, err)
				worksCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("ok", false)))
				return nil
			}
			worksCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("ok", true)))

			results[i] = records
			c.tel.ReportDebug(report_crawler_progress, i+1, len(items), item.WorkID)
			return nil
		})
	}
	err = group.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "crawl cancelled")
		return nil, err
	}

	var records []visit.Record
	for _, rows := range results {
		records = append(records, rows...)
	}
	c.tel.ReportCount(report_crawler_records, int64(len(records)))
	return records, nil
}

// crawlWork builds the records of a single work: one per visit, or a
// placeholder when the work has no visits yet.
func (c *Crawler) crawlWork(ctx context.Context, item esccapi.WorkItem) ([]visit.Record, error) {
	ctx, span := tracer.Start(ctx, "crawlWork")
	defer span.End()
	span.SetAttributes(attribute.String("work_id", item.WorkID))

	recordURL := c.src.VisitPageURL(item.WorkID)

	visits, err := c.src.Visits(ctx, item.WorkID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch visits")
		return nil, err
	}
	if len(visits) == 0 {
		return []visit.Record{visit.Placeholder(
			item.SampleID,
			item.WorkID,
			recordURL,
			item.InterviewerNo,
			item.InterviewerName,
		)}, nil
	}

	forms := c.recordForms(ctx, item.WorkID)
	t16 := c.t16Answer(ctx, forms)
	status := c.questionnaireStatus(ctx, forms)

	records := make([]visit.Record, len(visits))
	for i, v := range visits {
		contact, hasFill := c.contact(ctx, v)
		records[i] = visit.Record{
			SampleID:          item.SampleID,
			WorkID:            item.WorkID,
			Date:              v.Date,
			Session:           v.Session,
			ResultCode:        v.Code,
			RecordURL:         recordURL,
			ViewURL:           c.src.Resolve(v.ViewURL),
			LogsURL:           c.src.Resolve(v.LogURL),
			InterviewerNo:     item.InterviewerNo,
			InterviewerName:   item.InterviewerName,
			ContactMethod:     contact.Answer,
			ContactAnsweredAt: contact.AnsweredAt,
			T16Answer:         t16,
			Sampling:          status.Sampling,
			SamplingQ:         status.SamplingQ,
			InterviewRecord:   status.InterviewRecord,
			HasFill:           hasFill,
		}
	}
	return records, nil
}

// contact reads the contact method of a visit. A visit has been filled in
// when it has a form result whose contact method is answered. A form result
// the portal refuses to show still counts as filled in, a form result that
// could not be fetched at all does not.
func (c *Crawler) contact(ctx context.Context, v esccapi.Visit) (esccapi.Contact, string) {
	unanswered := esccapi.Contact{Answer: visit.NotDone}
	if v.ViewURL == "" {
		return unanswered, "0"
	}
	contact, err := c.src.Contact(ctx, v.ViewURL)
	var statusErr *esccapi.StatusError
	if errors.As(err, &statusErr) {
		return unanswered, "1"
	}
	if err != nil {
		return unanswered, "0"
	}
	if contact.Answer == visit.NotDone {
		return contact, "0"
	}
	return contact, "1"
}

// recordForms lists the questionnaires of a work, a failure is treated as no
// questionnaire being available.
func (c *Crawler) recordForms(ctx context.Context, workID string) []esccapi.FormLink {
	forms, err := c.src.RecordForms(ctx, workID)
	if err != nil {
		c.tel.ReportWarning(report_crawler_work, workID, err)
		return nil
	}
	return forms
}

func (c *Crawler) t16Answer(ctx context.Context, forms []esccapi.FormLink) string {
	href := esccapi.VisitSurveyURL(forms)
	if href == "" {
		return visit.NotDone
	}
	answer, err := c.src.T16Answer(ctx, href)
	if err != nil {
		return visit.NotDone
	}
	return answer
}

// questionnaireStatus reads the completion of a work's questionnaires, the
// last form of each kind wins.
func (c *Crawler) questionnaireStatus(ctx context.Context, forms []esccapi.FormLink) esccapi.QuestionnaireStatus {
	status := esccapi.QuestionnaireStatus{
		Sampling:        visit.NotDone,
		SamplingQ:       visit.NotDone,
		InterviewRecord: visit.NotDone,
	}
	for _, form := range forms {
		var field *string
		switch form.Kind() {
		case esccapi.FormSampling:
			field = &status.Sampling
		case esccapi.FormSamplingQuestionnaire:
			field = &status.SamplingQ
		case esccapi.FormInterviewRecord:
			field = &status.InterviewRecord
		default:
			continue
		}
		if form.Href == "" {
			continue
		}
		done, err := c.src.FormStatus(ctx, form.Href)
		if err != nil {
			continue
		}
		*field = done
	}
	return status
}
