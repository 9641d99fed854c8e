package report

import (
	"bytes"
	"handins-grader/internal/grade"
	"handins-grader/internal/handins"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func score(v float64) *float64 {
	return &v
}

var course = handins.Course{Id: 129, Name: "Fundamentals of Computer Science 2"}

const baseUrl = "https://handins.ccs.neu.edu"

func TestRender(t *testing.T) {
	records := []grade.Record{
		{Name: "Homework 1", ID: 901, Score: score(90), MaxScore: 100, Weight: 1},
		{Name: "Homework 2", ID: 902, Score: score(80), MaxScore: 100, Weight: 2},
		{Name: "Exam 1", ID: 903, MaxScore: 100, Weight: 3},
	}
	summary, err := grade.Aggregate(records)
	require.NoError(t, err)

	var out bytes.Buffer
	Render(&out, baseUrl, course, summary, err)
	rendered := out.String()

	require.Contains(t, rendered, course.Name)
	require.Contains(t, rendered, "83.33%")
	require.Contains(t, rendered, "41.67%")
	require.Contains(t, rendered, "91.67%")
	require.Contains(t, rendered, "8.33%")

	// records keep server order
	first := strings.Index(rendered, "Homework 1")
	second := strings.Index(rendered, "Homework 2")
	third := strings.Index(rendered, "Exam 1")
	require.True(t, first < second && second < third, rendered)

	var examLine string
	for _, line := range strings.Split(rendered, "\n") {
		switch {
		case strings.Contains(line, "Exam 1"):
			examLine = line
		case strings.Contains(line, "Homework"):
			require.NotContains(t, line, "submissions", "graded records have nothing to submit")
		}
	}
	require.Contains(t, examLine, ungradedMark)
	require.Contains(t, examLine, "3.00")
	require.Contains(t, examLine, "https://handins.ccs.neu.edu/courses/129/assignments/903/submissions/new")
}

func TestSubmitLink(t *testing.T) {
	table := []struct {
		name     string
		record   grade.Record
		expected string
	}{
		{
			name:     "ungraded",
			record:   grade.Record{Name: "hw3", ID: 77, MaxScore: 100, Weight: 1},
			expected: baseUrl + "/courses/129/assignments/77/submissions/new",
		},
		{
			name:   "graded",
			record: grade.Record{Name: "hw1", ID: 77, Score: score(50), MaxScore: 100, Weight: 1},
		},
		{
			name:   "unknown id",
			record: grade.Record{Name: "notes", MaxScore: 100, Weight: 1},
		},
	}

	for _, test := range table {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, submitLink(baseUrl, course, test.record))
		})
	}
}

func TestRenderNoGradedRecords(t *testing.T) {
	summary, err := grade.Aggregate([]grade.Record{{Name: "Homework 1", MaxScore: 100, Weight: 5}})
	require.ErrorIs(t, err, grade.ErrNoGradedRecords)

	var out bytes.Buffer
	Render(&out, baseUrl, course, summary, err)
	rendered := out.String()

	require.Contains(t, rendered, "Homework 1")
	require.Contains(t, rendered, "no graded assignments yet")
	require.NotContains(t, rendered, "0.00%")
}

func TestRenderScoreOutOfOtherMax(t *testing.T) {
	r := grade.Record{Name: "quiz", Score: score(3), MaxScore: 4, Weight: 1}
	require.Equal(t, "3.00 / 4.00", formatScore(r))
}

func TestRenderCourses(t *testing.T) {
	var out bytes.Buffer
	RenderCourses(&out, handins.Courses())
	rendered := out.String()

	require.Contains(t, rendered, "129")
	require.Contains(t, rendered, "cs2510a, fundies2accel, f2accel, f2a")
}
