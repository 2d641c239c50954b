package s3infra

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/videotube-api/internal/config"
	"github.com/videotube-api/internal/pkg/id"
	"go.uber.org/zap"
)

// Kind is the class of media being stored.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Asset is the result of a successful upload. Duration is set for video
// only when the store can measure it.
type Asset struct {
	URL      string
	Duration *float64
}

// ObjectAPI is the subset of the S3 client used by Store.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Store puts local media files in S3 and hands back their public URLs.
type Store struct {
	client  ObjectAPI
	bucket  string
	baseURL string
	log     *zap.Logger
}

// NewClient creates an S3 client. When cfg.AWSEndpointURL is set (LocalStack),
// it overrides the endpoint and enables path-style addressing.
func NewClient(cfg *config.Config) *s3.Client {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}

	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		panic("failed to load AWS config for S3: " + err.Error())
	}

	clientOpts := []func(*s3.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
			o.UsePathStyle = true
		})
	}

	return s3.NewFromConfig(awsCfg, clientOpts...)
}

// NewStore creates a Store. Objects are addressed as baseURL/key; when baseURL
// is empty the virtual-hosted S3 URL for the bucket is used.
func NewStore(client ObjectAPI, cfg *config.Config, log *zap.Logger) *Store {
	base := strings.TrimRight(cfg.S3PublicBaseURL, "/")
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3BucketName, cfg.AWSRegion)
	}
	return &Store{client: client, bucket: cfg.S3BucketName, baseURL: base, log: log}
}

// UploadFile uploads the file at localPath and removes the local copy whatever
// the outcome. The detected content type must match kind.
func (s *Store) UploadFile(ctx context.Context, localPath string, kind Kind) (*Asset, error) {
	defer s.removeLocal(localPath)

	if localPath == "" {
		return nil, fmt.Errorf("no file to upload")
	}
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return nil, fmt.Errorf("detect content type: %w", err)
	}
	if !matchesKind(mt, kind) {
		return nil, fmt.Errorf("content type %s is not a %s", mt.String(), kind)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%ss/%s%s", kind, id.New(), mt.Extension())
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(mt.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 put object: %w", err)
	}
	return &Asset{URL: s.baseURL + "/" + key}, nil
}

// DeleteByURL removes an object previously returned by UploadFile.
// URLs outside this store are ignored.
func (s *Store) DeleteByURL(ctx context.Context, rawURL string) error {
	key, ok := s.keyFor(rawURL)
	if !ok {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

func (s *Store) keyFor(rawURL string) (string, bool) {
	if !strings.HasPrefix(rawURL, s.baseURL+"/") {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimPrefix(rawURL, s.baseURL+"/"))
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}

func (s *Store) removeLocal(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.log.Warn("could not remove temp upload", zap.String("path", path), zap.Error(err))
	}
}

func matchesKind(mt *mimetype.MIME, kind Kind) bool {
	for m := mt; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), string(kind)+"/") {
			return true
		}
	}
	return false
}
