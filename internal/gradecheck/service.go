// Package gradecheck runs one grade check: log in, read the course's records,
// log out and aggregate.
package gradecheck

import (
	"context"
	"errors"
	"fmt"
	"handins-grader/internal/components/assert"
	"handins-grader/internal/components/telemetry"
	"handins-grader/internal/grade"
	"handins-grader/internal/handins"
)

const (
	report_check_close     = "check.close"
	report_check_aggregate = "check.aggregate"
)

// Source is a logged in session that can list a course's records.
//
// note: fault injection point
type Source interface {
	FetchRecords(ctx context.Context, courseId int) ([]grade.Record, error)
	Close(ctx context.Context) error
}

// Authenticator turns credentials into a Source.
//
// note: fault injection point
type Authenticator interface {
	Authenticate(ctx context.Context, creds handins.Credentials) (Source, error)
}

type handinsAuthenticator struct {
	client *handins.Client
}

func (h handinsAuthenticator) Authenticate(ctx context.Context, creds handins.Credentials) (Source, error) {
	session, err := h.client.Authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// FromHandins adapts a handins client to an Authenticator.
func FromHandins(client *handins.Client) Authenticator {
	assert.NotNil("client", client)
	return handinsAuthenticator{client: client}
}

type Service struct {
	auth Authenticator
	tel  telemetry.API
}

func NewService(auth Authenticator, tel telemetry.API) Service {
	assert.NotNil("auth", auth)
	assert.NotNil("tel", tel)

	return Service{
		auth: auth,
		tel:  telemetry.NewScopedAPI("gradecheck", tel),
	}
}

// Check logs in with `creds`, fetches the records of `course` and aggregates
// them. The credentials are wiped as soon as the login attempt returns, and
// the session is closed before aggregation whether or not the fetch worked.
//
// A summary is returned alongside grade.ErrNoGradedRecords so the records can
// still be shown.
func (s Service) Check(ctx context.Context, creds handins.Credentials, course handins.Course) (grade.Summary, error) {
	source, err := s.authenticate(ctx, creds)
	if err != nil {
		return grade.Summary{}, err
	}

	records, fetchErr := source.FetchRecords(ctx, course.Id)

	err = source.Close(ctx)
	if err != nil {
		s.tel.ReportWarning(report_check_close, err)
	}

	if fetchErr != nil {
		return grade.Summary{}, fetchErr
	}

	summary, err := grade.Aggregate(records)
	if errors.Is(err, grade.ErrNoGradedRecords) {
		return summary, err
	}
	if err != nil {
		s.tel.ReportBroken(report_check_aggregate, err, course.Id)
		return grade.Summary{}, fmt.Errorf("aggregate %s: %w", course.Name, err)
	}

	s.tel.ReportDebug("aggregated", course.Id, len(records))
	return summary, nil
}

func (s Service) authenticate(ctx context.Context, creds handins.Credentials) (Source, error) {
	defer creds.Wipe()
	return s.auth.Authenticate(ctx, creds)
}
