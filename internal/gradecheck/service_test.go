package gradecheck

import (
	"context"
	"errors"
	"handins-grader/internal/components/telemetry"
	"handins-grader/internal/grade"
	"handins-grader/internal/handins"
	"testing"

	"github.com/stretchr/testify/require"
)

func score(v float64) *float64 {
	return &v
}

type fakeSource struct {
	records  []grade.Record
	fetchErr error
	closeErr error

	fetchedCourse int
	closed        int
}

func (f *fakeSource) FetchRecords(ctx context.Context, courseId int) ([]grade.Record, error) {
	f.fetchedCourse = courseId
	return f.records, f.fetchErr
}

func (f *fakeSource) Close(ctx context.Context) error {
	f.closed++
	return f.closeErr
}

type fakeAuth struct {
	source  *fakeSource
	err     error
	seenPwd string
}

func (f *fakeAuth) Authenticate(ctx context.Context, creds handins.Credentials) (Source, error) {
	f.seenPwd = string(creds.Password)
	if f.err != nil {
		return nil, f.err
	}
	return f.source, nil
}

var fundies2 = handins.Course{Id: 129, Name: "Fundamentals of Computer Science 2"}

func TestCheck(t *testing.T) {
	source := &fakeSource{
		records: []grade.Record{
			{Name: "hw1", Score: score(90), MaxScore: 100, Weight: 1},
			{Name: "hw2", Score: score(80), MaxScore: 100, Weight: 2},
			{Name: "hw3", MaxScore: 100, Weight: 3},
		},
	}
	auth := &fakeAuth{source: source}
	service := NewService(auth, telemetry.NewMemoryAPI())

	password := []byte("hunter2")
	summary, err := service.Check(
		context.Background(),
		handins.Credentials{Username: "student", Password: password},
		fundies2,
	)
	require.NoError(t, err)
	require.InDelta(t, 250.0/3, summary.Percentage, 1e-9)
	require.Len(t, summary.Records, 3)

	require.Equal(t, "hunter2", auth.seenPwd)
	require.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0}, password)
	require.Equal(t, 129, source.fetchedCourse)
	require.Equal(t, 1, source.closed)
}

func TestCheckNoGradedRecords(t *testing.T) {
	source := &fakeSource{
		records: []grade.Record{{Name: "hw1", MaxScore: 100, Weight: 5}},
	}
	service := NewService(&fakeAuth{source: source}, telemetry.NewMemoryAPI())

	summary, err := service.Check(
		context.Background(),
		handins.Credentials{Username: "student", Password: []byte("pw")},
		fundies2,
	)
	require.ErrorIs(t, err, grade.ErrNoGradedRecords)
	require.Len(t, summary.Records, 1)
	require.Equal(t, 1, source.closed)
}

func TestCheckAuthFailure(t *testing.T) {
	authErr := &handins.AuthError{Op: "login request", Err: handins.ErrInvalidCredentials}
	auth := &fakeAuth{err: authErr}
	service := NewService(auth, telemetry.NewMemoryAPI())

	password := []byte("pw")
	_, err := service.Check(
		context.Background(),
		handins.Credentials{Username: "student", Password: password},
		fundies2,
	)
	require.ErrorIs(t, err, handins.ErrInvalidCredentials)
	require.Equal(t, []byte{0, 0}, password)
}

func TestCheckClosesSessionOnFetchFailure(t *testing.T) {
	fetchErr := &handins.FetchError{Op: "fetch assignments", Err: handins.ErrSessionExpired}
	source := &fakeSource{fetchErr: fetchErr, closeErr: errors.New("logout failed")}
	tel := telemetry.NewMemoryAPI()
	service := NewService(&fakeAuth{source: source}, tel)

	_, err := service.Check(
		context.Background(),
		handins.Credentials{Username: "student", Password: []byte("pw")},
		fundies2,
	)

	var target *handins.FetchError
	require.True(t, errors.As(err, &target))
	require.Equal(t, 1, source.closed)
	require.Len(t, tel.Entries(), 1)
	require.Equal(t, "gradecheck: check.close", tel.Entries()[0].Id)
}

func TestCheckInvalidRecord(t *testing.T) {
	source := &fakeSource{
		records: []grade.Record{{Name: "broken", Score: score(1), MaxScore: 0, Weight: 1}},
	}
	tel := telemetry.NewMemoryAPI()
	service := NewService(&fakeAuth{source: source}, tel)

	_, err := service.Check(
		context.Background(),
		handins.Credentials{Username: "student", Password: []byte("pw")},
		fundies2,
	)
	require.ErrorIs(t, err, grade.ErrInvalidRecord)
	require.Equal(t, []string{"gradecheck: check.aggregate"}, tel.Broken())
}
