package handins

import (
	"bytes"
	"context"
	"fmt"
	"handins-grader/internal/components/telemetry"
	"handins-grader/internal/grade"
	"handins-grader/pkg/htmlutil"
	"net/http/cookiejar"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_session_fetch_records = "session.fetch-records"
	report_session_close         = "session.close"
)

// handins reports every score as a percentage
const maxScore = 100

// Session is a logged in handins session. It is not safe for concurrent use.
type Session struct {
	baseUrl   *url.URL
	http      *resty.Client
	csrfToken string
	closed    bool

	tel telemetry.API
}

func (s *Session) assignmentsPath(courseId int) string {
	return fmt.Sprintf("/courses/%d/assignments/", courseId)
}

// FetchRecords returns the assignment records of a course in the order the
// server lists them.
func (s *Session) FetchRecords(ctx context.Context, courseId int) ([]grade.Record, error) {
	ctx, span := tracer.Start(ctx, "session:FetchRecords")
	defer span.End()
	span.SetAttributes(attribute.Int("course_id", courseId))

	fail := func(op string, err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, op)
		return &FetchError{Op: op, Err: err}
	}

	if s.closed {
		return nil, fail("session", ErrSessionClosed)
	}

	endpoint := s.assignmentsPath(courseId)
	s.tel.ReportDebug(report_session_fetch_records, endpoint)

	res, err := s.http.R().
		SetContext(ctx).
		SetHeader("Referer", s.baseUrl.String()+"/").
		Get(endpoint)
	if err != nil {
		s.tel.ReportWarning(
			report_session_fetch_records,
			fmt.Errorf("fetch: %w", err),
			endpoint,
		)
		return nil, fail("fetch assignments", err)
	}

	finalUrl := res.Request.RawRequest.URL
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		finalUrl = res.RawResponse.Request.URL
	}
	if strings.HasPrefix(finalUrl.Path, "/login") {
		return nil, fail("fetch assignments", ErrSessionExpired)
	}
	if res.IsError() {
		err := fmt.Errorf("unexpected status %s", res.Status())
		s.tel.ReportBroken(report_session_fetch_records, err, endpoint)
		return nil, fail("fetch assignments", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		s.tel.ReportBroken(
			report_session_fetch_records,
			fmt.Errorf("parse: %w", err),
			endpoint,
		)
		return nil, fail("parse assignments", err)
	}
	if isLoginPage(doc) {
		return nil, fail("fetch assignments", ErrSessionExpired)
	}
	if token := csrfToken(doc); token != "" {
		s.csrfToken = token
	}

	records, err := s.parseAssignments(finalUrl, doc)
	if err != nil {
		s.tel.ReportBroken(report_session_fetch_records, err, endpoint)
		return nil, fail("parse assignments", err)
	}

	s.tel.ReportCount("records", int64(len(records)))
	span.SetAttributes(attribute.Int("records", len(records)))

	return records, nil
}

func (s *Session) parseAssignments(pageUrl *url.URL, doc *goquery.Document) ([]grade.Record, error) {
	tbody := doc.Find("tbody").First()
	if tbody.Length() == 0 {
		return nil, fmt.Errorf("could not find assignments table")
	}

	records := []grade.Record{}
	var rowErr error
	tbody.Find("tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		record, ok, err := s.parseRow(pageUrl, row)
		if err != nil {
			rowErr = fmt.Errorf("row %d: %w", i, err)
			return false
		}
		if ok {
			records = append(records, record)
		}
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}

	return records, nil
}

// parseRow reads a single assignments row. The right aligned cells hold the
// assignment weight followed by the score, the score is missing until the
// assignment is graded.
func (s *Session) parseRow(pageUrl *url.URL, row *goquery.Selection) (grade.Record, bool, error) {
	firstCell := row.Find("td").First()
	if firstCell.Length() == 0 {
		return grade.Record{}, false, nil
	}

	record := grade.Record{MaxScore: maxScore}

	anchors := htmlutil.GetAnchors(pageUrl, firstCell.Find("a").First())
	if len(anchors) > 0 {
		record.Name = anchors[0].Name
		id, err := strconv.ParseInt(path.Base(anchors[0].Url.Path), 10, 64)
		if err == nil {
			record.ID = id
		}
	} else {
		record.Name = htmlutil.CleanText(firstCell.Text())
	}

	var values []float64
	for _, text := range htmlutil.OwnText(row.Find("td.text-right")) {
		value, err := parseNumber(text)
		if err != nil {
			return grade.Record{}, false, fmt.Errorf("%q: %w", record.Name, err)
		}
		values = append(values, value)
	}

	switch len(values) {
	case 0:
		s.tel.ReportWarning(report_session_fetch_records, "row without weight", record.Name)
		return grade.Record{}, false, nil
	case 1:
		record.Weight = values[0]
	case 2:
		record.Weight = values[0]
		record.Score = &values[1]
	default:
		return grade.Record{}, false, fmt.Errorf("%q: expected at most 2 numbers, got %d", record.Name, len(values))
	}

	if record.Weight < 0 {
		return grade.Record{}, false, fmt.Errorf("%q: negative weight %v", record.Name, record.Weight)
	}

	return record, true, nil
}

// parseNumber reads the leading number of strings like "12.5 %" or "98.2".
func parseNumber(text string) (float64, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty number")
	}
	value, err := strconv.ParseFloat(strings.TrimSuffix(fields[0], "%"), 64)
	if err != nil {
		return 0, fmt.Errorf("parse number %q: %w", text, err)
	}
	return value, nil
}

// Close logs out of handins and drops every cookie of the session. Logging
// out is best effort, the session is unusable afterwards either way.
func (s *Session) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	ctx, span := tracer.Start(ctx, "session:Close")
	defer span.End()

	s.closed = true
	defer func() {
		jar, err := cookiejar.New(nil)
		if err == nil {
			s.http.SetCookieJar(jar)
		}
		s.csrfToken = ""
	}()

	res, err := s.http.R().
		SetContext(ctx).
		SetHeader("X-CSRF-Token", s.csrfToken).
		SetHeader("Referer", s.baseUrl.String()+"/").
		Delete("/logout")
	if err != nil {
		s.tel.ReportWarning(report_session_close, fmt.Errorf("logout: %w", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "logout")
		return fmt.Errorf("handins: logout: %w", err)
	}
	if res.IsError() {
		err := fmt.Errorf("unexpected status %s", res.Status())
		s.tel.ReportWarning(report_session_close, fmt.Errorf("logout: %w", err))
		span.SetStatus(codes.Error, "logout")
		return fmt.Errorf("handins: logout: %w", err)
	}

	return nil
}
