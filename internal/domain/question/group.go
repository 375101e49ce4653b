package question

import (
	"sort"

	"github.com/turtacn/QuestionBank/pkg/errors"
)

// Group is every stored part of one question, in display order.
type Group struct {
	Key         Key    `json:"key"`
	MainContext string `json:"main_context,omitempty"`
	Parts       []Part `json:"parts"`
}

// Letters lists the part letters in order.
func (g Group) Letters() []string {
	out := make([]string, len(g.Parts))
	for i, p := range g.Parts {
		out[i] = p.PartLetter
	}
	return out
}

// TotalMarks sums the marks of all parts present.
func (g Group) TotalMarks() int {
	total := 0
	for _, p := range g.Parts {
		total += p.Marks
	}
	return total
}

// Merge orders parts of one question: the letterless part first, then
// alphabetical. Missing letters are not an error. Parts from different
// questions or repeated letters are rejected.
func Merge(parts []Part) (Group, error) {
	if len(parts) == 0 {
		return Group{}, nil
	}
	key := parts[0].Key
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		if p.Key != key {
			return Group{}, errors.New(errors.CodeMixedQuestionKey, "parts belong to different questions").
				WithDetailf("%s vs %s", key, p.Key)
		}
		if seen[p.PartLetter] {
			return Group{}, errors.New(errors.CodeDuplicatePart, "duplicate question part").
				WithDetailf("part=%s", p.Identity)
		}
		seen[p.PartLetter] = true
	}

	sorted := append([]Part(nil), parts...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].PartLetter < sorted[j].PartLetter })

	g := Group{Key: key, Parts: sorted}
	for _, p := range sorted {
		if p.MainContext != "" {
			g.MainContext = p.MainContext
			break
		}
	}
	return g, nil
}

// GroupAll partitions parts by question and merges each group. Groups are
// ordered by Key.Less; a group that fails to merge is reported and skipped.
func GroupAll(parts []Part) ([]Group, []error) {
	byKey := make(map[Key][]Part)
	var keys []Key
	for _, p := range parts {
		if _, ok := byKey[p.Key]; !ok {
			keys = append(keys, p.Key)
		}
		byKey[p.Key] = append(byKey[p.Key], p)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	groups := make([]Group, 0, len(keys))
	var errs []error
	for _, k := range keys {
		g, err := Merge(byKey[k])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		groups = append(groups, g)
	}
	return groups, errs
}

func sortRecordErrors(errs []RecordError) {
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Index < errs[j].Index })
}

//Personal.AI order the ending
