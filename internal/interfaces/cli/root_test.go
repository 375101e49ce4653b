package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/QuestionBank/internal/app"
	"github.com/turtacn/QuestionBank/internal/application/answers"
	"github.com/turtacn/QuestionBank/internal/application/classify"
	"github.com/turtacn/QuestionBank/internal/application/ingest"
	"github.com/turtacn/QuestionBank/internal/application/query"
	"github.com/turtacn/QuestionBank/internal/config"
	"github.com/turtacn/QuestionBank/internal/domain/paper"
	"github.com/turtacn/QuestionBank/internal/domain/question"
	"github.com/turtacn/QuestionBank/internal/infrastructure/database/postgres"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/QuestionBank/internal/testutil"
	apperrors "github.com/turtacn/QuestionBank/pkg/errors"
)

const testVocabulary = `
topics: [Fractions, Ratio, Percentage]
heuristics: [Supposition, Before-After]
aliases:
  heuristic:
    "Guess & Check": Supposition
`

func init() {
	color.NoColor = true
}

// writeConfig writes a config file pointing at a temporary vocabulary.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	vocab := filepath.Join(dir, "taxonomy.yaml")
	require.NoError(t, os.WriteFile(vocab, []byte(testVocabulary), 0o600))
	cfg := filepath.Join(dir, "config.yaml")
	body := "taxonomy:\n  path: " + vocab + "\nlog:\n  level: warn\n"
	require.NoError(t, os.WriteFile(cfg, []byte(body), 0o600))
	return cfg
}

type result struct {
	stdout string
	stderr string
	err    error
}

func run(t *testing.T, stdin string, args []string, opts ...Option) result {
	t.Helper()
	cmd := NewRootCommand(opts...)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", writeConfig(t), "--no-color"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

// mockOpener builds the storage services over repo.
func mockOpener(repo *testutil.MockQuestionRepo) Opener {
	return func(_ context.Context, cfg *config.Config, core *app.Core, logger logging.Logger) (*app.Services, func(), error) {
		return &app.Services{
			Ingest: ingest.NewService(repo, core.Splitter),
			Query:  query.NewService(repo, repo, core.Catalog, core.Registry, logger),
			Answers: answers.NewService(repo, core.Numbers, core.Catalog, answers.Config{
				Overwrite:    cfg.Pipeline.OverwriteAnswers,
				KeyNumbering: cfg.Pipeline.KeyNumbering,
			}),
			Classify: classify.NewService(repo, core.Reconciler),
		}, nil, nil
	}
}

func decode[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v), s)
	return v
}

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "qbank", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"taxonomy", "normalize", "split", "match", "reconcile", "paper", "ingest", "answers", "migrate"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}

	for _, flag := range []string{"config", "log-level", "output", "verbose", "no-color", "timeout"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestRootCommand_RejectsUnknownOutput(t *testing.T) {
	res := run(t, "", []string{"-o", "xml", "taxonomy", "list"})
	require.Error(t, res.err)
	assert.True(t, apperrors.IsValidation(res.err))
}

func TestTaxonomyValidate(t *testing.T) {
	res := run(t, "", []string{"-o", "json", "taxonomy", "validate", "fractions", "Fraction"})
	assert.ErrorIs(t, res.err, ErrCheckFailed)

	got := decode[[]LabelResult](t, res.stdout)
	require.Len(t, got, 2)
	assert.Equal(t, "Fractions", got[0].Canonical)
	assert.Empty(t, got[0].Error)
	assert.Empty(t, got[1].Canonical)
	assert.NotEmpty(t, got[1].Error)
	assert.Equal(t, apperrors.CodeLabelNotFound.String(), got[1].Code)
}

func TestTaxonomyMatch_Alias(t *testing.T) {
	res := run(t, "", []string{"-o", "json", "taxonomy", "match", "--category", "heuristic", "Guess & Check"})
	require.NoError(t, res.err)

	got := decode[[]LabelResult](t, res.stdout)
	require.Len(t, got, 1)
	assert.Equal(t, "Supposition", got[0].Canonical)
	assert.Equal(t, "alias", string(got[0].Kind))
}

func TestTaxonomyList(t *testing.T) {
	res := run(t, "", []string{"-o", "text", "taxonomy", "list", "heuristics"})
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "heuristic\tSupposition")
	assert.Contains(t, res.stdout, "heuristic\tBefore-After")
	assert.NotContains(t, res.stdout, "Fractions")
}

func TestTaxonomyList_UnknownCategory(t *testing.T) {
	res := run(t, "", []string{"taxonomy", "list", "colours"})
	require.Error(t, res.err)
	assert.True(t, apperrors.IsCode(res.err, apperrors.CodeUnknownCategory))
}

func TestNormalize(t *testing.T) {
	res := run(t, "", []string{"-o", "json", "normalize", "--section", "p1b", "Q16", "Q17", "abc"})
	assert.ErrorIs(t, res.err, ErrCheckFailed)

	got := decode[[]NumberResult](t, res.stdout)
	require.Len(t, got, 3)
	assert.Equal(t, 1, got[0].Canonical)
	assert.Equal(t, 2, got[1].Canonical)
	assert.Equal(t, "P1B", got[2].Section)
	assert.Equal(t, apperrors.CodeInvalidQuestionNumber.String(), got[2].Code)
}

func TestNormalize_RequiresSection(t *testing.T) {
	res := run(t, "", []string{"normalize", "Q1"})
	require.Error(t, res.err)
}

const payloads = `[
  {"school": "Rosyth", "year": 2024, "section": "P2", "raw_question_number": "6",
   "stem_text": "Ali had some sweets.", "marks_total": 4,
   "parts": [{"letter": "a", "text": "How many?", "marks": 2}, {"letter": "(b)", "text": "What fraction?", "marks": 2}]},
  {"school": "Rosyth", "year": 2024, "section": "P2", "raw_question_number": "7", "stem_text": "No marks"}
]`

func TestSplit(t *testing.T) {
	res := run(t, payloads, []string{"-o", "json", "split"})
	require.NoError(t, res.err)

	got := decode[SplitResult](t, res.stdout)
	require.Len(t, got.Parts, 2)
	assert.Equal(t, "a", got.Parts[0].PartLetter)
	assert.Equal(t, "b", got.Parts[1].PartLetter)
	assert.Equal(t, "Ali had some sweets.", got.Parts[1].MainContext)
	require.Len(t, got.Rejected, 1)
	assert.Equal(t, 1, got.Rejected[0].Index)
}

func TestSplit_TableOutput(t *testing.T) {
	res := run(t, payloads, []string{"split"})
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Rosyth/2024/P2/6a")
	assert.Contains(t, res.stdout, "2 parts, 1 payloads rejected")
}

func TestSplit_MalformedInput(t *testing.T) {
	res := run(t, `[{"school": "Rosyth", "bogus": 1}]`, []string{"split"})
	require.Error(t, res.err)
	assert.True(t, apperrors.IsValidation(res.err))
}

func TestIngest(t *testing.T) {
	repo := &testutil.MockQuestionRepo{}
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(parts []question.Part) bool { return len(parts) == 2 })).
		Return(question.UpsertResult{Inserted: 2}, nil).Once()

	res := run(t, payloads, []string{"-o", "json", "ingest", "-"}, WithOpener(mockOpener(repo)))
	require.NoError(t, res.err)

	got := decode[IngestResult](t, res.stdout)
	assert.Equal(t, 2, got.Inserted)
	assert.Equal(t, 2, got.Parts)
	assert.Len(t, got.Rejected, 1)
	repo.AssertExpectations(t)
}

func TestIngest_OpenFailure(t *testing.T) {
	opener := func(context.Context, *config.Config, *app.Core, logging.Logger) (*app.Services, func(), error) {
		return nil, nil, apperrors.New(apperrors.ErrCodeServiceUnavailable, "postgres unavailable")
	}
	res := run(t, payloads, []string{"ingest"}, WithOpener(opener))
	require.Error(t, res.err)
	assert.True(t, apperrors.IsCode(res.err, apperrors.ErrCodeServiceUnavailable))
}

func storedParts() []question.Part {
	key := question.Key{School: "Rosyth", Year: 2024, Section: "P2", QuestionNum: 6}
	return []question.Part{
		{Identity: question.Identity{Key: key, PartLetter: "a"}, Marks: 2, MainContext: "stem"},
		{Identity: question.Identity{Key: key, PartLetter: "b"}, Marks: 2, MainContext: "stem"},
		{Identity: question.Identity{Key: question.Key{School: "Rosyth", Year: 2024, Section: "P2", QuestionNum: 1}}, Marks: 2, Text: "1+1"},
	}
}

func TestMatch_Offline(t *testing.T) {
	dir := t.TempDir()
	partsFile := filepath.Join(dir, "parts.json")
	data, err := json.Marshal(storedParts())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(partsFile, data, 0o600))

	candidates := `[{"raw_key": "P2_6a", "value": "12"}, {"raw_key": "P2_1", "value": "2"}, {"raw_key": "??", "value": "x"}]`
	res := run(t, candidates, []string{"-o", "json", "match", "--candidates", "-", "--parts", partsFile})
	require.NoError(t, res.err)

	got := decode[AnswerReport](t, res.stdout)
	require.Len(t, got.Results, 3)
	assert.Equal(t, 2, got.Exact)
	assert.Equal(t, 1, got.NoCandidate)
	assert.Len(t, got.Unparsable, 1)
	assert.Equal(t, "12", got.Results[0].Candidate.Value)
}

func TestMatch_BothFromStdin(t *testing.T) {
	res := run(t, "[]", []string{"match", "--candidates", "-", "--parts", "-"})
	require.Error(t, res.err)
	assert.True(t, apperrors.IsValidation(res.err))
}

func TestAnswersBind(t *testing.T) {
	repo := &testutil.MockQuestionRepo{}
	repo.On("List", mock.Anything, question.Filter{School: "Rosyth", Year: 2024, Section: "P2"}).
		Return(storedParts(), nil).Once()
	repo.On("UpdateAnswer", mock.Anything, storedParts()[0].Identity, "12", "", true).Return(true, nil).Once()
	repo.On("UpdateAnswer", mock.Anything, storedParts()[2].Identity, "2", "", true).Return(false, nil).Once()

	candidates := `[{"raw_key": "P2_6a", "value": "12"}, {"raw_key": "P2_1", "value": "2"}]`
	res := run(t, candidates, []string{"-o", "json", "answers", "bind", "--school", "Rosyth", "--year", "2024", "--section", "p2", "--overwrite"},
		WithOpener(mockOpener(repo)))
	require.NoError(t, res.err)

	got := decode[BindOutput](t, res.stdout)
	assert.Equal(t, 1, got.Updated)
	assert.Equal(t, 1, got.Unchanged)
	require.Len(t, got.Missing, 1)
	assert.Equal(t, "b", got.Missing[0].PartLetter)
	repo.AssertExpectations(t)
}

func TestAnswersImport_NeedsOneSource(t *testing.T) {
	res := run(t, "", []string{"answers", "import", "--school", "Rosyth", "--year", "2024"})
	require.Error(t, res.err)
	assert.True(t, apperrors.IsValidation(res.err))
}

func TestReconcile_Offline(t *testing.T) {
	in := `[{"proposed_topics": ["fractions", "Geometry"], "proposed_heuristics": ["Guess & Check"], "confidence": 0.9},
	        {"proposed_topics": ["Ratio"], "proposed_heuristics": [], "confidence": null}]`
	res := run(t, in, []string{"-o", "json", "reconcile"})
	require.NoError(t, res.err)

	got := decode[[]ReconcileResult](t, res.stdout)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"Fractions"}, got[0].Topics)
	assert.Equal(t, []string{"Supposition"}, got[0].Heuristics)
	require.Len(t, got[0].Dropped, 1)
	assert.Equal(t, "Geometry", got[0].Dropped[0].Raw)
	assert.True(t, got[0].NeedsReview)
	assert.True(t, got[1].NeedsReview, "missing confidence needs review")
}

func TestReconcile_Apply(t *testing.T) {
	repo := &testutil.MockQuestionRepo{}
	id := storedParts()[2].Identity
	repo.On("UpdateTags", mock.Anything, id, mock.AnythingOfType("question.Tags")).Return(true, nil).Once()

	in, err := json.Marshal([]classify.Item{{Identity: id}})
	require.NoError(t, err)
	in = bytes.Replace(in, []byte(`"proposed_topics":null`), []byte(`"proposed_topics":["Ratio"]`), 1)

	res := run(t, string(in), []string{"-o", "json", "reconcile", "--apply"}, WithOpener(mockOpener(repo)))
	require.NoError(t, res.err)

	got := decode[[]ReconcileResult](t, res.stdout)
	require.Len(t, got, 1)
	assert.Equal(t, id.String(), got[0].Part)
	require.NotNil(t, got[0].Stored)
	assert.True(t, *got[0].Stored)
	repo.AssertExpectations(t)
}

func TestPaperValidate_File(t *testing.T) {
	partsFile := filepath.Join(t.TempDir(), "parts.json")
	bad := storedParts()
	bad[2].Marks = 9
	data, err := json.Marshal(bad)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(partsFile, data, 0o600))

	res := run(t, "", []string{"-o", "json", "paper", "validate", "--file", partsFile})
	assert.ErrorIs(t, res.err, ErrCheckFailed)

	got := decode[PaperReport](t, res.stdout)
	assert.False(t, got.Valid)
	require.Len(t, got.Sections, 1)
	assert.Equal(t, paper.SectionCount{Section: "P2", Found: 2, Expected: 17}, got.Sections[0])
	require.NotEmpty(t, got.Warnings)
	assert.Equal(t, 1, got.Warnings[0].QuestionNum)
}


func TestPaperValidate_Stored(t *testing.T) {
	repo := &testutil.MockQuestionRepo{}
	repo.On("List", mock.Anything, question.Filter{School: "Rosyth", Year: 2024}).Return(storedParts(), nil).Once()

	res := run(t, "", []string{"-o", "json", "paper", "validate", "--school", "Rosyth", "--year", "2024"}, WithOpener(mockOpener(repo)))
	assert.ErrorIs(t, res.err, ErrCheckFailed)
	got := decode[PaperReport](t, res.stdout)
	assert.Equal(t, "Rosyth", got.School)
	assert.Empty(t, got.Warnings)
	require.Len(t, got.Issues, 1)
	assert.Contains(t, got.Issues[0].Message, "missing Q2, Q3, Q4, Q5, Q7")
	repo.AssertExpectations(t)
}

func TestPaperValidate_NeedsPaper(t *testing.T) {
	res := run(t, "", []string{"paper", "validate", "--school", "Rosyth"})
	require.Error(t, res.err)
	assert.True(t, apperrors.IsValidation(res.err))
}

func TestPaperList(t *testing.T) {
	res := run(t, "", []string{"-o", "text", "paper", "list"})
	require.NoError(t, res.err)
	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "P1B\t"))
	assert.Contains(t, lines[1], "\tQ16\t")
}

func TestTaxonomyAudit(t *testing.T) {
	parts := storedParts()
	parts[0].Tags = question.Tags{Topics: []string{"Fractions"}}
	parts[1].Tags = question.Tags{Topics: []string{"Algebra"}}
	repo := &testutil.MockQuestionRepo{}
	repo.On("List", mock.Anything, mock.AnythingOfType("question.Filter")).Return(parts, nil).Once()

	res := run(t, "", []string{"-o", "json", "taxonomy", "audit", "--school", "Rosyth"}, WithOpener(mockOpener(repo)))
	assert.ErrorIs(t, res.err, ErrCheckFailed)

	got := decode[AuditResult](t, res.stdout)
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, 1, got.Untagged)
	require.Len(t, got.Invalid, 1)
	assert.Equal(t, "Algebra", got.Invalid[0].Label)
}

type fakeMigrator struct {
	calls   []string
	version uint
}

func (f *fakeMigrator) Up() error { f.calls = append(f.calls, "up"); f.version = 3; return nil }

func (f *fakeMigrator) Down(steps int) error {
	f.calls = append(f.calls, "down")
	f.version -= uint(steps)
	return nil
}

func (f *fakeMigrator) Status() (postgres.MigrationStatus, error) {
	return postgres.MigrationStatus{Version: f.version}, nil
}

func (f *fakeMigrator) Force(version int) error {
	f.calls = append(f.calls, "force")
	f.version = uint(version)
	return nil
}

func TestMigrate(t *testing.T) {
	fm := &fakeMigrator{}
	factory := WithMigrator(func(*config.Config, logging.Logger) Migrator { return fm })

	res := run(t, "", []string{"-o", "json", "migrate", "up"}, factory)
	require.NoError(t, res.err)
	assert.Equal(t, uint(3), decode[MigrationResult](t, res.stdout).Version)

	res = run(t, "", []string{"-o", "json", "migrate", "down", "--steps", "2"}, factory)
	require.NoError(t, res.err)
	assert.Equal(t, uint(1), decode[MigrationResult](t, res.stdout).Version)

	res = run(t, "", []string{"migrate", "force", "x"}, factory)
	require.Error(t, res.err)

	res = run(t, "", []string{"-o", "json", "migrate", "status"}, factory)
	require.NoError(t, res.err)
	assert.Equal(t, []string{"up", "down"}, fm.calls)
}

func TestPrintError_SkipsCheckFailed(t *testing.T) {
	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetErr(&buf)

	PrintError(cmd, ErrCheckFailed)
	assert.Empty(t, buf.String())

	PrintError(cmd, apperrors.NotFound("paper"))
	assert.Contains(t, buf.String(), "Error:")
}

//Personal.AI order the ending
