package handins

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

var ErrUnknownCourse = errors.New("unknown course")

// DefaultCourse is used when neither the command line nor the config names a
// course.
const DefaultCourse = "cs2510"

// names closer than this get suggested on a typo
const suggestionThreshold = 0.7

type Course struct {
	Id      int
	Name    string
	Aliases []string
}

var knownCourses = []Course{
	{
		Id:      129,
		Name:    "Fundamentals of Computer Science 2",
		Aliases: []string{"cs2510", "fundies2", "f2"},
	},
	{
		Id:      126,
		Name:    "Fundamentals of Computer Science 2 (Accelerated)",
		Aliases: []string{"cs2510a", "fundies2accel", "f2accel", "f2a"},
	},
}

// Courses lists the courses that can be looked up by alias.
func Courses() []Course {
	out := make([]Course, len(knownCourses))
	copy(out, knownCourses)
	return out
}

// LookupCourse resolves a course alias ("cs2510", "Fundies 2") or a raw
// handins course id ("126").
func LookupCourse(name string) (Course, error) {
	normalized := normalizeCourseName(name)
	if normalized == "" {
		return Course{}, fmt.Errorf("%w: no course given", ErrUnknownCourse)
	}

	id, err := strconv.Atoi(normalized)
	if err == nil {
		if id <= 0 {
			return Course{}, fmt.Errorf("%w: invalid course id %d", ErrUnknownCourse, id)
		}
		for _, c := range knownCourses {
			if c.Id == id {
				return c, nil
			}
		}
		return Course{Id: id, Name: fmt.Sprintf("course %d", id)}, nil
	}

	for _, c := range knownCourses {
		for _, alias := range c.Aliases {
			if alias == normalized {
				return c, nil
			}
		}
	}

	suggestion, similarity := closestAlias(normalized)
	if similarity >= suggestionThreshold {
		return Course{}, fmt.Errorf("%w %q, did you mean %q?", ErrUnknownCourse, name, suggestion)
	}
	return Course{}, fmt.Errorf("%w %q", ErrUnknownCourse, name)
}

// normalizeCourseName lowercases `name` and drops spaces, dashes and
// underscores, so "CS 2510", "cs-2510" and "cs2510" are the same alias.
func normalizeCourseName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' || r == '_' {
			return -1
		}
		return unicode.ToLower(r)
	}, name)
}

func closestAlias(name string) (string, float64) {
	var best string
	var bestSimilarity float64
	for _, c := range knownCourses {
		for _, alias := range c.Aliases {
			similarity := matchr.JaroWinkler(name, alias, false)
			if similarity > bestSimilarity {
				best = alias
				bestSimilarity = similarity
			}
		}
	}
	return best, bestSimilarity
}
