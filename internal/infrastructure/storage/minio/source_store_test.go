package minio

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/QuestionBank/internal/infrastructure/hashing"
	"github.com/turtacn/QuestionBank/pkg/errors"
)

type mockObjectAPI struct {
	mock.Mock
}

func (m *mockObjectAPI) BucketExists(ctx context.Context, bucket string) (bool, error) {
	args := m.Called(ctx, bucket)
	return args.Bool(0), args.Error(1)
}

func (m *mockObjectAPI) MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error {
	return m.Called(ctx, bucket, opts).Error(0)
}

func (m *mockObjectAPI) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucket, key, r, size, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func (m *mockObjectAPI) GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	args := m.Called(ctx, bucket, key, opts)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

func (m *mockObjectAPI) StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	args := m.Called(ctx, bucket, key, opts)
	return args.Get(0).(minio.ObjectInfo), args.Error(1)
}

func (m *mockObjectAPI) ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	return m.Called(ctx, bucket, opts).Get(0).(<-chan minio.ObjectInfo)
}

func (m *mockObjectAPI) RemoveObject(ctx context.Context, bucket, key string, opts minio.RemoveObjectOptions) error {
	return m.Called(ctx, bucket, key, opts).Error(0)
}

var noSuchKey = minio.ErrorResponse{Code: "NoSuchKey", Message: "The specified key does not exist."}

type SourceStoreTestSuite struct {
	suite.Suite
	api    *mockObjectAPI
	client *Client
	store  *SourceStore
	ctx    context.Context
}

func (s *SourceStoreTestSuite) SetupTest() {
	s.api = new(mockObjectAPI)
	s.client = NewClientWithAPI(s.api, "qbank-sources", nil)
	s.store = NewSourceStore(s.client, nil)
	s.ctx = context.Background()
}

func (s *SourceStoreTestSuite) TearDownTest() {
	s.api.AssertExpectations(s.T())
}

func (s *SourceStoreTestSuite) TestObjectKey() {
	meta := SourceMeta{School: "  Tao  Nan ", Year: 2024, Kind: KindAnswerKey}
	s.Equal("sources/tao-nan/2024/answer_key/abc.pdf", ObjectKey(meta, "abc"))

	meta.Kind = ""
	s.Equal("sources/tao-nan/2024/paper/abc.pdf", ObjectKey(meta, "abc"))
}

func (s *SourceStoreTestSuite) TestPut_UploadsNewContent() {
	data := []byte("%PDF-1.4 answer key")
	digest, _, err := hashing.Reader(bytes.NewReader(data))
	s.Require().NoError(err)
	key := ObjectKey(SourceMeta{School: "Tao Nan", Year: 2024, Kind: KindAnswerKey}, digest)

	s.api.On("StatObject", s.ctx, "qbank-sources", key, mock.Anything).Return(minio.ObjectInfo{}, noSuchKey).Once()
	s.api.On("PutObject", s.ctx, "qbank-sources", key, mock.Anything, int64(len(data)),
		mock.MatchedBy(func(o minio.PutObjectOptions) bool {
			return o.ContentType == "application/pdf" && o.UserMetadata["filename"] == "key.pdf"
		})).Return(minio.UploadInfo{Key: key}, nil).Once()

	obj, err := s.store.Put(s.ctx, SourceMeta{School: "Tao Nan", Year: 2024, Kind: KindAnswerKey, Filename: "key.pdf"}, bytes.NewReader(data))
	s.Require().NoError(err)
	s.Equal(key, obj.Key)
	s.Equal(digest, obj.Digest)
	s.Equal(int64(len(data)), obj.Size)
	s.False(obj.Existing)
}

func (s *SourceStoreTestSuite) TestPut_SkipsExistingContent() {
	s.api.On("StatObject", s.ctx, "qbank-sources", mock.Anything, mock.Anything).
		Return(minio.ObjectInfo{LastModified: time.Unix(1700000000, 0)}, nil).Once()

	obj, err := s.store.Put(s.ctx, SourceMeta{School: "Tao Nan", Year: 2024}, bytes.NewReader([]byte("%PDF")))
	s.Require().NoError(err)
	s.True(obj.Existing)
	s.api.AssertNotCalled(s.T(), "PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *SourceStoreTestSuite) TestPut_RejectsBadInput() {
	_, err := s.store.Put(s.ctx, SourceMeta{Year: 2024}, bytes.NewReader([]byte("x")))
	s.True(errors.IsValidation(err))

	_, err = s.store.Put(s.ctx, SourceMeta{School: "Tao Nan", Year: 2024}, bytes.NewReader(nil))
	s.True(errors.IsValidation(err))
}

func (s *SourceStoreTestSuite) TestFetch_NotFound() {
	s.api.On("StatObject", s.ctx, "qbank-sources", "sources/x.pdf", mock.Anything).Return(minio.ObjectInfo{}, noSuchKey).Once()

	_, err := s.store.Fetch(s.ctx, "sources/x.pdf")
	s.True(errors.IsCode(err, errors.CodeObjectNotFound))
	s.True(errors.IsNotFound(err))
}

func (s *SourceStoreTestSuite) TestFetch_ReadsBody() {
	s.api.On("StatObject", s.ctx, "qbank-sources", "sources/k.pdf", mock.Anything).Return(minio.ObjectInfo{Key: "sources/k.pdf"}, nil).Once()
	s.api.On("GetObject", s.ctx, "qbank-sources", "sources/k.pdf", mock.Anything).
		Return(io.NopCloser(bytes.NewReader([]byte("%PDF-body"))), nil).Once()

	data, err := s.store.Fetch(s.ctx, "sources/k.pdf")
	s.Require().NoError(err)
	s.Equal("%PDF-body", string(data))
}

func (s *SourceStoreTestSuite) TestList() {
	ch := make(chan minio.ObjectInfo, 2)
	ch <- minio.ObjectInfo{Key: "sources/tao-nan/2024/paper/aa.pdf", Size: 10, UserMetadata: minio.StringMap{"Filename": "p2.pdf"}}
	ch <- minio.ObjectInfo{Key: "sources/tao-nan/2024/answer_key/bb.pdf", Size: 20}
	close(ch)
	s.api.On("ListObjects", s.ctx, "qbank-sources", minio.ListObjectsOptions{Prefix: "sources/tao-nan/2024/", Recursive: true}).
		Return((<-chan minio.ObjectInfo)(ch)).Once()

	objs, err := s.store.List(s.ctx, "Tao Nan", 2024, "")
	s.Require().NoError(err)
	s.Require().Len(objs, 2)
	s.Equal("aa", objs[0].Digest)
	s.Equal("p2.pdf", objs[0].Filename)
	s.Equal(int64(20), objs[1].Size)
}

func (s *SourceStoreTestSuite) TestClosedClient() {
	s.Require().NoError(s.client.Close())

	_, err := s.store.Put(s.ctx, SourceMeta{School: "Tao Nan", Year: 2024}, bytes.NewReader([]byte("x")))
	s.ErrorIs(err, ErrClientClosed)
	s.ErrorIs(s.client.HealthCheck(s.ctx), ErrClientClosed)
}

func TestSourceStoreTestSuite(t *testing.T) {
	suite.Run(t, new(SourceStoreTestSuite))
}

func TestEnsureBucket(t *testing.T) {
	ctx := context.Background()

	api := new(mockObjectAPI)
	api.On("BucketExists", ctx, "b").Return(false, nil).Once()
	api.On("MakeBucket", ctx, "b", mock.Anything).Return(nil).Once()
	require.NoError(t, NewClientWithAPI(api, "b", nil).EnsureBucket(ctx))
	api.AssertExpectations(t)

	present := new(mockObjectAPI)
	present.On("BucketExists", ctx, "b").Return(true, nil).Once()
	require.NoError(t, NewClientWithAPI(present, "b", nil).EnsureBucket(ctx))
	present.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
}

//Personal.AI order the ending
