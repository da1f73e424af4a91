package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

const keyRoot = "images"

var (
	// ErrInvalidObject covers unsupported content types, empty or oversized
	// bodies and keys or URLs outside this store.
	ErrInvalidObject  = errors.New("invalid object")
	ErrObjectNotFound = errors.New("object not found")
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Config describes the bucket. PublicBaseURL is the CDN or bucket URL that
// object keys are appended to.
type Config struct {
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
	UsePathStyle  bool
	MaxBytes      int64
}

// Object is a stored image.
type Object struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"-"`
	Size        int64  `json:"-"`
}

type api interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store uploads and deletes images.
type S3Store struct {
	client  api
	bucket  string
	baseURL string
	maxSize int64
	now     func() time.Time
}

// DefaultMaxBytes caps uploads when Config.MaxBytes is zero.
const DefaultMaxBytes = 10 << 20

var loadDefaultAWSConfig = config.LoadDefaultConfig

// NewS3Store builds an S3 client with static credentials.
func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage: bucket is required")
	}
	if cfg.PublicBaseURL == "" {
		return nil, errors.New("storage: public base url is required")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})
	return newS3Store(client, cfg), nil
}

func newS3Store(client api, cfg Config) *S3Store {
	maxSize := cfg.MaxBytes
	if maxSize <= 0 {
		maxSize = DefaultMaxBytes
	}
	return &S3Store{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/") + "/",
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Upload stores body under a fresh key in owner's prefix.
func (s *S3Store) Upload(ctx context.Context, owner, filename, contentType string, body []byte) (Object, error) {
	if owner == "" || strings.Contains(owner, "/") {
		return Object{}, fmt.Errorf("%w: bad owner %q", ErrInvalidObject, owner)
	}
	contentType = normalizeContentType(contentType)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return Object{}, fmt.Errorf("%w: unsupported content type %q", ErrInvalidObject, contentType)
	}
	if len(body) == 0 || int64(len(body)) > s.maxSize {
		return Object{}, fmt.Errorf("%w: size %d outside (0, %d]", ErrInvalidObject, len(body), s.maxSize)
	}
	if contentType == "image/jpeg" && strings.EqualFold(path.Ext(filename), ".jpeg") {
		ext = ".jpeg"
	}

	key := s.newKey(owner, ext)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return Object{}, fmt.Errorf("put object %s: %w", key, err)
	}
	return Object{Key: key, URL: s.URL(key), ContentType: contentType, Size: int64(len(body))}, nil
}

// Head returns ErrObjectNotFound when the key does not exist.
func (s *S3Store) Head(ctx context.Context, key string) (Object, error) {
	if !validKey(key) {
		return Object{}, fmt.Errorf("%w: bad key %q", ErrInvalidObject, key)
	}
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return Object{}, ErrObjectNotFound
		}
		return Object{}, fmt.Errorf("head object %s: %w", key, err)
	}
	return Object{
		Key:         key,
		URL:         s.URL(key),
		ContentType: aws.ToString(out.ContentType),
		Size:        aws.ToInt64(out.ContentLength),
	}, nil
}

// Delete removes key. Deleting a missing object succeeds.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	if !validKey(key) {
		return fmt.Errorf("%w: bad key %q", ErrInvalidObject, key)
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// DeleteByURL deletes the object behind a URL previously returned by Upload.
func (s *S3Store) DeleteByURL(ctx context.Context, rawURL string) error {
	key, ok := s.KeyFromURL(rawURL)
	if !ok {
		return fmt.Errorf("%w: url outside store", ErrInvalidObject)
	}
	return s.Delete(ctx, key)
}

func (s *S3Store) URL(key string) string {
	return s.baseURL + key
}

func (s *S3Store) KeyFromURL(rawURL string) (string, bool) {
	if !strings.HasPrefix(rawURL, s.baseURL) {
		return "", false
	}
	key := strings.TrimPrefix(rawURL, s.baseURL)
	return key, validKey(key)
}

// OwnedBy reports whether key was issued to owner. The key must have the
// exact images/<owner>/YYYY/MM/DD/<name> shape; a longer key that merely
// starts with the owner's segment does not match.
func OwnedBy(key, owner string) bool {
	if owner == "" || !validKey(key) {
		return false
	}
	parts := strings.Split(key, "/")
	if len(parts) != 6 || parts[1] != ownerSegment(owner) {
		return false
	}
	return digits(parts[2], 4) && digits(parts[3], 2) && digits(parts[4], 2) && parts[5] != ""
}

func (s *S3Store) newKey(owner, ext string) string {
	d := s.now().UTC()
	return fmt.Sprintf("%s/%s/%04d/%02d/%02d/%s%s", keyRoot, ownerSegment(owner), d.Year(), d.Month(), d.Day(), uuid.NewString(), ext)
}

func ownerSegment(owner string) string {
	return url.PathEscape(owner)
}

func digits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func validKey(key string) bool {
	if !strings.HasPrefix(key, keyRoot+"/") || strings.Contains(key, "..") || strings.Contains(key, "//") {
		return false
	}
	return path.Clean(key) == key
}

func normalizeContentType(ct string) string {
	ct, _, _ = strings.Cut(ct, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}
