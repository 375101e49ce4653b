// Package taxonomy holds the controlled vocabulary of topic and heuristic
// labels that questions are tagged with, and the exact/fuzzy lookups used to
// canonicalize labels coming from an external classifier.
//
// The vocabulary is always supplied by the caller (see LoadFile); nothing in
// this package knows which labels exist.
package taxonomy

import (
	"strings"

	"github.com/turtacn/QuestionBank/pkg/errors"
)

// Category partitions the vocabulary.
type Category string

const (
	CategoryTopic     Category = "topic"
	CategoryHeuristic Category = "heuristic"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryTopic, CategoryHeuristic}

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	return c == CategoryTopic || c == CategoryHeuristic
}

func (c Category) String() string { return string(c) }

// ParseCategory accepts singular or plural forms, case-insensitively.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "topic", "topics":
		return CategoryTopic, nil
	case "heuristic", "heuristics":
		return CategoryHeuristic, nil
	}
	return "", errors.New(errors.CodeUnknownCategory, "unknown taxonomy category").WithDetail(s)
}

// Entry is one canonical label of the vocabulary.
type Entry struct {
	Label    string   `json:"label" yaml:"label"`
	Category Category `json:"category" yaml:"category"`
}

//Personal.AI order the ending
