package answers

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/QuestionBank/internal/domain/answerkey"
	"github.com/turtacn/QuestionBank/internal/domain/numbering"
	"github.com/turtacn/QuestionBank/internal/domain/paper"
	"github.com/turtacn/QuestionBank/internal/domain/question"
	"github.com/turtacn/QuestionBank/internal/infrastructure/storage/minio"
	"github.com/turtacn/QuestionBank/internal/testutil"
	apperrors "github.com/turtacn/QuestionBank/pkg/errors"
)

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Extract(data []byte) ([]answerkey.Page, error) {
	args := m.Called(data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]answerkey.Page), args.Error(1)
}

type mockSourceStore struct {
	mock.Mock
}

func (m *mockSourceStore) Put(ctx context.Context, meta minio.SourceMeta, r io.Reader) (minio.SourceObject, error) {
	data, _ := io.ReadAll(r)
	args := m.Called(ctx, meta, data)
	return args.Get(0).(minio.SourceObject), args.Error(1)
}

func (m *mockSourceStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type fakeCache struct {
	keys []question.Key
}

func (c *fakeCache) Invalidate(_ context.Context, keys ...question.Key) error {
	c.keys = append(c.keys, keys...)
	return nil
}

func id(section string, num int, letter string) question.Identity {
	return question.Identity{
		Key:        question.Key{School: "Nanyang", Year: 2024, Section: section, QuestionNum: num},
		PartLetter: letter,
	}
}

func part(i question.Identity) question.Part {
	return question.Part{Identity: i, Marks: 2, Text: "text"}
}

type AnswersServiceTestSuite struct {
	suite.Suite
	repo      *testutil.MockQuestionRepo
	extractor *mockExtractor
	sources   *mockSourceStore
	cache     *fakeCache
	pub       *testutil.RecordingPublisher
	catalog   *paper.Catalog
	numbers   *numbering.Normalizer
	ctx       context.Context
}

func (s *AnswersServiceTestSuite) SetupTest() {
	s.repo = &testutil.MockQuestionRepo{}
	s.extractor = &mockExtractor{}
	s.sources = &mockSourceStore{}
	s.cache = &fakeCache{}
	s.pub = &testutil.RecordingPublisher{}
	s.ctx = context.Background()

	var err error
	s.catalog, err = paper.NewCatalog(paper.DefaultStructures())
	s.Require().NoError(err)
	s.numbers, err = numbering.NewNormalizer(s.catalog.NumberingRules())
	s.Require().NoError(err)
}

func (s *AnswersServiceTestSuite) service(cfg Config) *Service {
	return NewService(s.repo, s.numbers, s.catalog, cfg,
		WithExtractor(s.extractor),
		WithSourceStore(s.sources),
		WithCache(s.cache),
		WithEvents(s.pub))
}

func (s *AnswersServiceTestSuite) storedParts() []question.Part {
	return []question.Part{
		part(id("P1A", 1, "")),
		part(id("P2", 6, "a")),
		part(id("P2", 6, "b")),
		part(id("P2", 7, "")),
	}
}

func (s *AnswersServiceTestSuite) TestBind() {
	s.repo.On("List", s.ctx, question.Filter{School: "Nanyang", Year: 2024}).Return(s.storedParts(), nil)
	s.repo.On("UpdateAnswer", s.ctx, id("P1A", 1, ""), "B", "", false).Return(true, nil)
	s.repo.On("UpdateAnswer", s.ctx, id("P2", 6, "a"), "12", "", false).Return(true, nil)
	s.repo.On("UpdateAnswer", s.ctx, id("P2", 6, "b"), "18", "30 - 12", false).Return(false, nil)

	res, err := s.service(Config{}).Bind(s.ctx, BindRequest{
		School: "Nanyang",
		Year:   2024,
		Candidates: []answerkey.Candidate{
			{RawKey: "P1A_1", Value: "(2)"},
			{RawKey: "P2_6a", Value: "12"},
			{RawKey: "P2_6b", Value: "18", WorkedSolution: "30 - 12"},
			{RawKey: "garbage!!", Value: "x"},
		},
	})
	s.Require().NoError(err)

	s.Equal(2, res.Updated)
	s.Equal(1, res.Unchanged)
	s.Equal([]question.Identity{id("P2", 7, "")}, res.Missing)
	s.Require().Len(res.Report.Unparsable, 1)
	s.Equal(3, res.Report.Unparsable[0].Index)

	s.Len(s.cache.keys, 2)
	missing := s.pub.OfType(question.EventAnswerMissing)
	s.Require().Len(missing, 1)
	s.Equal(id("P2", 7, "").Key.String(), missing[0].AggregateID())
	s.repo.AssertExpectations(s.T())
}

func (s *AnswersServiceTestSuite) TestBind_WrittenKeysInvalidatedOnFailure() {
	s.repo.On("List", s.ctx, question.Filter{School: "Nanyang", Year: 2024, Section: "P2"}).
		Return([]question.Part{part(id("P2", 6, "a")), part(id("P2", 7, ""))}, nil)
	s.repo.On("UpdateAnswer", s.ctx, id("P2", 6, "a"), "12", "", false).Return(true, nil)
	s.repo.On("UpdateAnswer", s.ctx, id("P2", 7, ""), "5", "", false).
		Return(false, apperrors.New(apperrors.CodeDatabaseError, "down"))

	res, err := s.service(Config{}).Bind(s.ctx, BindRequest{
		School: "Nanyang", Year: 2024, Section: "P2",
		Candidates: []answerkey.Candidate{
			{RawKey: "P2_6a", Value: "12"},
			{RawKey: "P2_7", Value: "5"},
		},
	})
	s.Require().Error(err)
	s.True(apperrors.IsCode(err, apperrors.CodeDatabaseError))
	s.Equal(1, res.Updated)
	s.Equal([]question.Key{id("P2", 6, "a").Key}, s.cache.keys)
}

func (s *AnswersServiceTestSuite) TestBind_OverwriteFromRequestWinsOverConfig() {
	s.repo.On("List", s.ctx, question.Filter{School: "Nanyang", Year: 2024, Section: "P2"}).
		Return([]question.Part{part(id("P2", 6, "a"))}, nil)
	s.repo.On("UpdateAnswer", s.ctx, id("P2", 6, "a"), "12", "", false).Return(true, nil)

	no := false
	_, err := s.service(Config{Overwrite: true}).Bind(s.ctx, BindRequest{
		School: "Nanyang", Year: 2024, Section: "p2",
		Candidates: []answerkey.Candidate{{RawKey: "P2_6a", Value: "12"}},
		Overwrite:  &no,
	})
	s.Require().NoError(err)
	s.repo.AssertExpectations(s.T())
}

func (s *AnswersServiceTestSuite) TestBind_PrintedNumbers() {
	s.repo.On("List", s.ctx, mock.Anything).Return([]question.Part{part(id("P1B", 1, ""))}, nil)
	s.repo.On("UpdateAnswer", s.ctx, id("P1B", 1, ""), "42", "", false).Return(true, nil)

	res, err := s.service(Config{KeyNumbering: NumberingPrinted}).Bind(s.ctx, BindRequest{
		School: "Nanyang", Year: 2024,
		Candidates: []answerkey.Candidate{{RawKey: "P1B_16", Value: "42"}},
	})
	s.Require().NoError(err)
	s.Equal(1, res.Updated)
	s.Empty(res.Missing)
}

func (s *AnswersServiceTestSuite) TestBind_NoStoredParts() {
	s.repo.On("List", s.ctx, mock.Anything).Return([]question.Part{}, nil)

	_, err := s.service(Config{}).Bind(s.ctx, BindRequest{School: "Nanyang", Year: 2024})
	s.True(apperrors.IsNotFound(err))
}

func (s *AnswersServiceTestSuite) TestBind_InvalidRequest() {
	_, err := s.service(Config{}).Bind(s.ctx, BindRequest{School: "Nanyang"})
	s.True(apperrors.IsValidation(err))
}

func (s *AnswersServiceTestSuite) TestBind_StorageFailure() {
	s.repo.On("List", s.ctx, mock.Anything).Return([]question.Part{part(id("P2", 6, "a"))}, nil)
	s.repo.On("UpdateAnswer", s.ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(false, apperrors.New(apperrors.CodeDatabaseError, "down"))

	_, err := s.service(Config{}).Bind(s.ctx, BindRequest{
		School: "Nanyang", Year: 2024,
		Candidates: []answerkey.Candidate{{RawKey: "P2_6a", Value: "12"}},
	})
	s.True(apperrors.IsCode(err, apperrors.CodeDatabaseError))
	s.Empty(s.pub.Events())
}

const keyText = "Paper 1 Booklet A\nQ1: (3)\nPaper 2\nQ6a: 12\nQ6b: 18\nWorking: 30 - 12 = 18"

func (s *AnswersServiceTestSuite) TestImport_StoresAndBinds() {
	data := []byte("%PDF-1.4 scan")
	stored := minio.SourceObject{Key: "sources/nanyang/2024/answer_key/abc.pdf", Digest: "abc"}
	s.sources.On("Put", s.ctx, minio.SourceMeta{School: "Nanyang", Year: 2024, Kind: minio.KindAnswerKey, Filename: "key.pdf"}, data).
		Return(stored, nil)
	s.extractor.On("Extract", data).Return([]answerkey.Page{{Number: 1, Text: keyText}}, nil)
	s.repo.On("List", s.ctx, question.Filter{School: "Nanyang", Year: 2024}).Return(s.storedParts(), nil)
	s.repo.On("UpdateAnswer", s.ctx, id("P1A", 1, ""), "C", "", false).Return(true, nil)
	s.repo.On("UpdateAnswer", s.ctx, id("P2", 6, "a"), "12", "", false).Return(true, nil)
	s.repo.On("UpdateAnswer", s.ctx, id("P2", 6, "b"), "18", "30 - 12 = 18", false).Return(true, nil)

	res, err := s.service(Config{}).Import(s.ctx, ImportRequest{
		School: "Nanyang", Year: 2024, Data: data, Filename: "key.pdf", Store: true,
	})
	s.Require().NoError(err)

	s.Equal(&stored, res.Source)
	s.Equal(1, res.Pages)
	s.Len(res.Candidates, 3)
	s.Equal("C", res.Candidates[0].Value)
	s.Equal(3, res.Updated)
	s.Len(res.Missing, 1)
	s.sources.AssertExpectations(s.T())
}

func (s *AnswersServiceTestSuite) TestImport_FromObjectKey() {
	data := []byte("%PDF-1.4 stored")
	s.sources.On("Fetch", s.ctx, "sources/k.pdf").Return(data, nil)
	s.extractor.On("Extract", data).Return([]answerkey.Page{{Number: 1, Text: "Paper 2\nQ6a: 12"}}, nil)
	s.repo.On("List", s.ctx, mock.Anything).Return([]question.Part{part(id("P2", 6, "a"))}, nil)
	s.repo.On("UpdateAnswer", s.ctx, id("P2", 6, "a"), "12", "", false).Return(true, nil)

	res, err := s.service(Config{}).Import(s.ctx, ImportRequest{School: "Nanyang", Year: 2024, SourceKey: "sources/k.pdf"})
	s.Require().NoError(err)
	s.Equal("sources/k.pdf", res.Source.Key)
	s.Equal(1, res.Updated)
}

func (s *AnswersServiceTestSuite) TestImport_NoEntries() {
	data := []byte("%PDF")
	s.extractor.On("Extract", data).Return([]answerkey.Page{{Number: 1, Text: "cover page"}}, nil)

	_, err := s.service(Config{}).Import(s.ctx, ImportRequest{School: "Nanyang", Year: 2024, Data: data})
	s.True(apperrors.IsCode(err, apperrors.CodePDFExtraction))
	s.repo.AssertNotCalled(s.T(), "List", mock.Anything, mock.Anything)
}

func (s *AnswersServiceTestSuite) TestImport_ExtractionFailure() {
	s.extractor.On("Extract", mock.Anything).Return(nil, apperrors.New(apperrors.CodePDFExtraction, "bad pdf"))

	_, err := s.service(Config{}).Import(s.ctx, ImportRequest{School: "Nanyang", Year: 2024, Data: []byte("x")})
	s.True(apperrors.IsCode(err, apperrors.CodePDFExtraction))
}

func TestAnswersServiceSuite(t *testing.T) {
	suite.Run(t, new(AnswersServiceTestSuite))
}

func TestImport_SourceErrors(t *testing.T) {
	repo := &testutil.MockQuestionRepo{}
	ctx := context.Background()

	noExtractor := NewService(repo, nil, nil, Config{})
	_, err := noExtractor.Import(ctx, ImportRequest{Data: []byte("x")})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeServiceUnavailable))

	noStore := NewService(repo, nil, nil, Config{}, WithExtractor(&mockExtractor{}))
	_, err = noStore.Import(ctx, ImportRequest{SourceKey: "sources/x.pdf"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeServiceUnavailable))
	_, err = noStore.Import(ctx, ImportRequest{Data: []byte("x"), Store: true})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeServiceUnavailable))

	_, err = noStore.Import(ctx, ImportRequest{})
	assert.True(t, apperrors.IsValidation(err))
}

func TestImport_FetchNotFound(t *testing.T) {
	ctx := context.Background()
	store := &mockSourceStore{}
	store.On("Fetch", ctx, "sources/gone.pdf").
		Return(nil, apperrors.Wrap(errors.New("NoSuchKey"), apperrors.CodeObjectNotFound, "source object not found"))

	svc := NewService(&testutil.MockQuestionRepo{}, nil, nil, Config{}, WithExtractor(&mockExtractor{}), WithSourceStore(store))
	_, err := svc.Import(ctx, ImportRequest{SourceKey: "sources/gone.pdf"})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAnswerValue_OnlyMCQIsNormalized(t *testing.T) {
	catalog, err := paper.NewCatalog(paper.DefaultStructures())
	require.NoError(t, err)
	svc := NewService(&testutil.MockQuestionRepo{}, nil, catalog, Config{})

	assert.Equal(t, "D", svc.answerValue(id("P1A", 3, ""), "4"))
	assert.Equal(t, "4", svc.answerValue(id("P2", 3, ""), "4"))
	assert.Equal(t, "about 4", svc.answerValue(id("P1A", 3, ""), "about 4"))
	assert.Equal(t, "4", svc.answerValue(id("P9", 3, ""), "4"))
}

//Personal.AI order the ending
