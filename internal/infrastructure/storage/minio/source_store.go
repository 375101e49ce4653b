package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/QuestionBank/internal/infrastructure/hashing"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/QuestionBank/pkg/errors"
)

// SourceKind separates exam papers from their answer keys.
type SourceKind string

const (
	KindPaper     SourceKind = "paper"
	KindAnswerKey SourceKind = "answer_key"
)

const (
	sourcePrefix = "sources"
	pdfType      = "application/pdf"
)

// SourceMeta describes an uploaded scan.
type SourceMeta struct {
	School   string
	Year     int
	Kind     SourceKind
	Filename string
}

// SourceObject is a stored scan.
type SourceObject struct {
	Key          string
	Digest       string
	Size         int64
	Filename     string
	LastModified time.Time
	// Existing is set when Put found identical content already stored.
	Existing bool
}

// SourceStore keeps source PDFs under sources/<school>/<year>/<kind>/<digest>.pdf.
type SourceStore struct {
	client *Client
	logger logging.Logger
}

func NewSourceStore(client *Client, log logging.Logger) *SourceStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &SourceStore{client: client, logger: log.Named("source_store")}
}

// ObjectKey builds the content-addressed key for meta and digest.
func ObjectKey(meta SourceMeta, digest string) string {
	kind := meta.Kind
	if kind == "" {
		kind = KindPaper
	}
	return path.Join(sourcePrefix, slug(meta.School), fmt.Sprintf("%d", meta.Year), string(kind), digest+".pdf")
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), "-")
}

// Put uploads r unless an object with the same digest already exists.
func (s *SourceStore) Put(ctx context.Context, meta SourceMeta, r io.Reader) (SourceObject, error) {
	if err := s.client.checkOpen(); err != nil {
		return SourceObject{}, err
	}
	if strings.TrimSpace(meta.School) == "" || meta.Year <= 0 {
		return SourceObject{}, errors.InvalidParam("source needs a school and a year").
			WithDetailf("school=%q year=%d", meta.School, meta.Year)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return SourceObject{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to read source")
	}
	if len(data) == 0 {
		return SourceObject{}, errors.InvalidParam("source is empty")
	}
	digest, size, err := hashing.Reader(bytes.NewReader(data))
	if err != nil {
		return SourceObject{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to hash source")
	}

	key := ObjectKey(meta, digest)
	obj := SourceObject{Key: key, Digest: digest, Size: size, Filename: meta.Filename}

	if info, err := s.client.api.StatObject(ctx, s.client.bucket, key, minio.StatObjectOptions{}); err == nil {
		obj.Existing = true
		obj.LastModified = info.LastModified
		s.logger.Debug("source already stored", logging.String("key", key))
		return obj, nil
	} else if !isNotFound(err) {
		return SourceObject{}, errors.Wrap(err, errors.CodeStorageError, "failed to stat source").WithDetail(key)
	}

	_, err = s.client.api.PutObject(ctx, s.client.bucket, key, bytes.NewReader(data), size, minio.PutObjectOptions{
		ContentType:  pdfType,
		UserMetadata: map[string]string{"filename": meta.Filename, "school": meta.School},
	})
	if err != nil {
		return SourceObject{}, errors.Wrap(err, errors.CodeStorageError, "failed to upload source").WithDetail(key)
	}
	obj.LastModified = time.Now().UTC()
	s.logger.Info("source stored", logging.String("key", key), logging.Int64("size", size))
	return obj, nil
}

// Open streams a stored object. The caller closes the reader.
func (s *SourceStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := s.client.checkOpen(); err != nil {
		return nil, err
	}
	if _, err := s.Stat(ctx, key); err != nil {
		return nil, err
	}
	rc, err := s.client.api.GetObject(ctx, s.client.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, objectErr(err, key, "failed to download source")
	}
	return rc, nil
}

// Fetch reads a whole object into memory.
func (s *SourceStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, objectErr(err, key, "failed to download source")
	}
	return data, nil
}

func (s *SourceStore) Stat(ctx context.Context, key string) (SourceObject, error) {
	info, err := s.client.api.StatObject(ctx, s.client.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return SourceObject{}, objectErr(err, key, "failed to stat source")
	}
	return toSourceObject(info), nil
}

// List returns the objects stored for one school and year, optionally
// narrowed to one kind.
func (s *SourceStore) List(ctx context.Context, school string, year int, kind SourceKind) ([]SourceObject, error) {
	prefix := path.Join(sourcePrefix, slug(school), fmt.Sprintf("%d", year))
	if kind != "" {
		prefix = path.Join(prefix, string(kind))
	}
	prefix += "/"

	var out []SourceObject
	for info := range s.client.api.ListObjects(ctx, s.client.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if info.Err != nil {
			return nil, errors.Wrap(info.Err, errors.CodeStorageError, "failed to list sources").WithDetail(prefix)
		}
		out = append(out, toSourceObject(info))
	}
	return out, nil
}

func (s *SourceStore) Delete(ctx context.Context, key string) error {
	if err := s.client.api.RemoveObject(ctx, s.client.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return objectErr(err, key, "failed to delete source")
	}
	return nil
}

func toSourceObject(info minio.ObjectInfo) SourceObject {
	digest := strings.TrimSuffix(path.Base(info.Key), ".pdf")
	return SourceObject{
		Key:          info.Key,
		Digest:       digest,
		Size:         info.Size,
		Filename:     info.UserMetadata["Filename"],
		LastModified: info.LastModified,
	}
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

func objectErr(err error, key, msg string) error {
	if isNotFound(err) {
		return errors.Wrap(err, errors.CodeObjectNotFound, "source object not found").WithDetail(key)
	}
	return errors.Wrap(err, errors.CodeStorageError, msg).WithDetail(key)
}

//Personal.AI order the ending
