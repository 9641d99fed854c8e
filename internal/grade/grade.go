// Package grade reduces a course's assignment records to a single weighted
// percentage. Nothing in here performs I/O.
package grade

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNoGradedRecords means no record carries a score yet (or every graded
	// record has zero weight), so there is no percentage to report. It must
	// not be shown as 0%.
	ErrNoGradedRecords = errors.New("no graded assignments yet")
	ErrInvalidRecord   = errors.New("invalid assignment record")
)

// Record is one assignment row as reported by the grading server.
type Record struct {
	Name string
	// ID is the server's assignment id, 0 when unknown.
	ID int64
	// Score is nil until the assignment has been graded.
	Score    *float64
	MaxScore float64
	Weight   float64
}

func (r Record) Graded() bool {
	return r.Score != nil
}

// Ratio is Score / MaxScore, only meaningful for graded records.
func (r Record) Ratio() float64 {
	if r.Score == nil || r.MaxScore == 0 {
		return 0
	}
	return *r.Score / r.MaxScore
}

// SubmissionLink is the page where a new submission for the record can be
// uploaded.
func (r Record) SubmissionLink(baseUrl string, courseId int) string {
	return fmt.Sprintf("%s/courses/%d/assignments/%d/submissions/new", baseUrl, courseId, r.ID)
}

func (r Record) validate() error {
	if math.IsNaN(r.Weight) || math.IsInf(r.Weight, 0) || r.Weight < 0 {
		return fmt.Errorf("%w: %q has weight %v", ErrInvalidRecord, r.Name, r.Weight)
	}
	if r.Score == nil {
		return nil
	}
	if math.IsNaN(*r.Score) || math.IsInf(*r.Score, 0) {
		return fmt.Errorf("%w: %q has score %v", ErrInvalidRecord, r.Name, *r.Score)
	}
	if math.IsNaN(r.MaxScore) || math.IsInf(r.MaxScore, 0) || r.MaxScore <= 0 {
		return fmt.Errorf("%w: %q has max score %v", ErrInvalidRecord, r.Name, r.MaxScore)
	}
	return nil
}

// Summary is the result of Aggregate. All values are unrounded.
type Summary struct {
	// Percentage is the weighted average over graded records only.
	Percentage float64
	// Records are kept in the order they were given.
	Records []Record

	GradedWeight   float64
	UngradedWeight float64

	// Minimum is the course percentage if every ungraded record scored 0.
	Minimum float64
	// Maximum is the course percentage if every ungraded record scored full
	// marks.
	Maximum float64
}

// Potential is how many percentage points can still be gained over the
// current grade by acing every ungraded record.
func (s Summary) Potential() float64 {
	return s.Maximum - s.Percentage
}

// Aggregate computes the weighted percentage of the graded records:
//
//	sum(score/max * weight) / sum(weight) * 100
//
// where both sums only range over graded records. Ungraded weight is left out
// of the denominator, so the result is the grade on what has been graded so
// far rather than a projection.
//
// When nothing has been graded the returned Summary still carries the records
// and ungraded weight, along with ErrNoGradedRecords.
func Aggregate(records []Record) (Summary, error) {
	summary := Summary{Records: records}

	var weightedSum float64
	for _, r := range records {
		err := r.validate()
		if err != nil {
			return Summary{}, err
		}
		if !r.Graded() {
			summary.UngradedWeight += r.Weight
			continue
		}
		weightedSum += r.Ratio() * r.Weight
		summary.GradedWeight += r.Weight
	}

	if summary.GradedWeight == 0 {
		return summary, ErrNoGradedRecords
	}

	summary.Percentage = weightedSum / summary.GradedWeight * 100

	allWeight := summary.GradedWeight + summary.UngradedWeight
	summary.Minimum = weightedSum / allWeight * 100
	summary.Maximum = (weightedSum + summary.UngradedWeight) / allWeight * 100

	return summary, nil
}
