package answerkey

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Page is the extracted text of one answer-key page.
type Page struct {
	Number int
	Text   string
}

// ParseOptions controls ParseText.
type ParseOptions struct {
	// DefaultSection applies until a section anchor is seen.
	DefaultSection string
	// IsMCQ, when set, selects entries whose value is normalized with
	// NormalizeMCQ.
	IsMCQ func(section string, number int) bool
}

var sectionAnchors = []struct {
	section string
	needles []string
}{
	{"P1A", []string{"booklet a", "paper 1a", "paper 1 booklet a"}},
	{"P1B", []string{"booklet b", "paper 1b", "paper 1 booklet b"}},
	{"P2", []string{"paper 2"}},
}

var (
	questionLine = regexp.MustCompile(`^[Qq]\s*(\d+)(?:([a-z])|\s*\(([a-z])\))?\s*[:\-.]?\s*(.*)$`)
	answerLine   = regexp.MustCompile(`(?i)^ans(?:wer)?\s*[:=]\s*(.*)$`)
	workingLine  = regexp.MustCompile(`(?i)^working\s*:\s*(.*)$`)
)

// DetectSection returns the section named by an anchor in line, or "".
func DetectSection(line string) string {
	lower := strings.ToLower(line)
	for _, a := range sectionAnchors {
		for _, n := range a.needles {
			if strings.Contains(lower, n) {
				return a.section
			}
		}
	}
	return ""
}

type pending struct {
	section string
	number  int
	letter  string
	answer  string
	working []string
	page    int
}

// ParseText reads "Q<n>: value" answer sheets. "Answer:" and "Working:" lines
// attach to the preceding question and a bare line fills a missing answer.
// Section anchors ("Booklet B", "Paper 2") switch the section for the lines
// that follow. Entries without an answer are skipped; entries seen before any
// section get an unparsable key so they surface for review.
func ParseText(pages []Page, opts ParseOptions) []Candidate {
	var (
		out     []Candidate
		cur     *pending
		section = opts.DefaultSection
	)
	flush := func() {
		if cur == nil || strings.TrimSpace(cur.answer) == "" {
			cur = nil
			return
		}
		c := Candidate{
			Value:          strings.TrimSpace(cur.answer),
			WorkedSolution: strings.Join(cur.working, "\n"),
			SourcePage:     cur.page,
		}
		if cur.section == "" {
			c.RawKey = fmt.Sprintf("Q%d%s", cur.number, cur.letter)
		} else {
			c.RawKey = FormatKey(cur.section, cur.number, cur.letter)
		}
		if opts.IsMCQ != nil && cur.section != "" && opts.IsMCQ(cur.section, cur.number) {
			if v, ok := NormalizeMCQ(c.Value); ok {
				c.Value = v
			}
		}
		out = append(out, c)
		cur = nil
	}

	for _, page := range pages {
		for _, raw := range strings.Split(page.Text, "\n") {
			line := strings.TrimSpace(raw)
			if line == "" {
				continue
			}
			if m := questionLine.FindStringSubmatch(line); m != nil {
				flush()
				n, err := strconv.Atoi(m[1])
				if err != nil || n < 1 {
					continue
				}
				cur = &pending{section: section, number: n, letter: m[2] + m[3], page: page.Number}
				if rest := strings.TrimSpace(m[4]); rest != "" && !strings.HasPrefix(strings.ToLower(rest), "working") {
					cur.answer = rest
				}
				continue
			}
			if s := DetectSection(line); s != "" {
				flush()
				section = s
				continue
			}
			if cur == nil {
				continue
			}
			switch {
			case answerLine.MatchString(line):
				cur.answer = answerLine.FindStringSubmatch(line)[1]
			case workingLine.MatchString(line):
				cur.working = append(cur.working, strings.TrimSpace(workingLine.FindStringSubmatch(line)[1]))
			case cur.answer == "" && !strings.HasPrefix(line, "-"):
				cur.answer = line
			}
		}
	}
	flush()
	return out
}

//Personal.AI order the ending
