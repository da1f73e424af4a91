package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
	putErr  error
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string]string{}} }

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.objects[*in.Key] = string(b)
	f.mu.Unlock()
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	return nil, errors.New("not used")
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	delete(f.objects, *in.Key)
	f.mu.Unlock()
	return &s3.DeleteObjectOutput{}, nil
}

func newTestStore(client api) *S3Store {
	s := newS3Store(client, Config{Bucket: "media", PublicBaseURL: "https://cdn.example.com/", MaxBytes: 16})
	s.now = func() time.Time { return time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC) }
	return s
}

func TestUploadKeyLayout(t *testing.T) {
	fake := newFakeS3()
	s := newTestStore(fake)

	obj, err := s.Upload(context.Background(), "alice01", "cat.jpeg", "image/jpeg; charset=binary", []byte("jpegdata"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(obj.Key, "images/alice01/2024/03/09/"), obj.Key)
	assert.True(t, strings.HasSuffix(obj.Key, ".jpeg"), obj.Key)
	assert.Equal(t, "https://cdn.example.com/"+obj.Key, obj.URL)
	assert.Equal(t, "jpegdata", fake.objects[obj.Key])
	assert.True(t, OwnedBy(obj.Key, "alice01"))
	assert.False(t, OwnedBy(obj.Key, "alice"))
}

func TestOwnedByRequiresExactKeyShape(t *testing.T) {
	const name = "0f8fad5b-d9cb-469f-a165-70867728950e.png"

	assert.True(t, OwnedBy("images/alice/2024/03/01/"+name, "alice"))
	assert.False(t, OwnedBy("images/alice/evil/2024/03/01/"+name, "alice"))
	assert.False(t, OwnedBy("images/alice/evil/2024/03/01/"+name, "alice/evil"))
	assert.False(t, OwnedBy("images/alice/2024/3/01/"+name, "alice"))
	assert.False(t, OwnedBy("images/alice/2024/03/01/", "alice"))
	assert.False(t, OwnedBy("images/alice/2024/03/01/x/"+name, "alice"))
	assert.False(t, OwnedBy("images/bob/2024/03/01/"+name, "alice"))
	assert.False(t, OwnedBy("images/alice/2024/03/01/"+name, ""))
	assert.True(t, OwnedBy("images/al%20ice/2024/03/01/"+name, "al ice"))
}

func TestUploadEscapesOwnerSegment(t *testing.T) {
	fake := newFakeS3()
	s := newTestStore(fake)

	obj, err := s.Upload(context.Background(), "al ice", "a.png", "image/png", []byte("png"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(obj.Key, "images/al%20ice/2024/03/09/"), obj.Key)
	assert.True(t, OwnedBy(obj.Key, "al ice"))
	assert.False(t, OwnedBy(obj.Key, "al%20ice"))
}

func TestUploadRejects(t *testing.T) {
	s := newTestStore(newFakeS3())
	ctx := context.Background()

	cases := map[string]struct {
		owner, ct string
		body      []byte
	}{
		"non-image":  {"alice01", "text/html", []byte("<p>")},
		"empty":      {"alice01", "image/png", nil},
		"too large":  {"alice01", "image/png", make([]byte, 17)},
		"slash user": {"a/b", "image/png", []byte("x")},
	}
	for name, tc := range cases {
		_, err := s.Upload(ctx, tc.owner, "f.png", tc.ct, tc.body)
		assert.ErrorIs(t, err, ErrInvalidObject, name)
	}
}

func TestUploadPropagatesBackendError(t *testing.T) {
	fake := newFakeS3()
	fake.putErr = errors.New("slow down")
	_, err := newTestStore(fake).Upload(context.Background(), "alice01", "a.png", "image/png", []byte("x"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidObject)
}

func TestDeleteByURL(t *testing.T) {
	fake := newFakeS3()
	s := newTestStore(fake)
	ctx := context.Background()

	obj, err := s.Upload(ctx, "alice01", "a.png", "image/png", []byte("x"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteByURL(ctx, obj.URL))
	assert.Empty(t, fake.objects)

	assert.ErrorIs(t, s.DeleteByURL(ctx, "https://elsewhere.example.com/"+obj.Key), ErrInvalidObject)
	assert.ErrorIs(t, s.Delete(ctx, "images/../secrets"), ErrInvalidObject)
	assert.ErrorIs(t, s.Delete(ctx, "other/key"), ErrInvalidObject)
}

// s3Server is a tiny path-style object server.
func s3Server(t *testing.T) *httptest.Server {
	t.Helper()
	var mu sync.Mutex
	objects := map[string][]byte{}
	ctypes := map[string]string{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		key := strings.TrimPrefix(r.URL.Path, "/media/")
		switch r.Method {
		case http.MethodPut:
			b, _ := io.ReadAll(r.Body)
			objects[key] = b
			ctypes[key] = r.Header.Get("Content-Type")
			w.Header().Set("ETag", `"etag"`)
			w.WriteHeader(http.StatusOK)
		case http.MethodHead:
			b, ok := objects[key]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", ctypes[key])
			w.Header().Set("Content-Length", strconv.Itoa(len(b)))
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			delete(objects, key)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestS3StoreAgainstHTTPBackend(t *testing.T) {
	srv := s3Server(t)
	ctx := context.Background()

	s, err := NewS3Store(ctx, Config{
		Bucket:        "media",
		Region:        "us-east-1",
		Endpoint:      srv.URL,
		AccessKey:     "test",
		SecretKey:     "test-secret",
		PublicBaseURL: "http://cdn.local",
		UsePathStyle:  true,
	})
	require.NoError(t, err)

	obj, err := s.Upload(ctx, "alice01", "a.png", "image/png", []byte("pngbytes"))
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.local/"+obj.Key, obj.URL)

	head, err := s.Head(ctx, obj.Key)
	require.NoError(t, err)
	assert.Equal(t, "image/png", head.ContentType)
	assert.EqualValues(t, 8, head.Size)

	require.NoError(t, s.Delete(ctx, obj.Key))
	_, err = s.Head(ctx, obj.Key)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestNewS3StoreRequiresBucketAndURL(t *testing.T) {
	_, err := NewS3Store(context.Background(), Config{PublicBaseURL: "http://x"})
	assert.Error(t, err)
	_, err = NewS3Store(context.Background(), Config{Bucket: "b"})
	assert.Error(t, err)
}
