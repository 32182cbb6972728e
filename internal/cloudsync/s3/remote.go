// Package s3 stores the sync file as an object in an S3-compatible bucket.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/oauth2"

	"github.com/mcoot/combattracker/internal/cloudsync"
	"github.com/mcoot/combattracker/internal/model"
)

// Config selects the bucket and object
type Config struct {
	Bucket string
	Key    string
	Region string

	// Endpoint targets S3-compatible services such as MinIO
	Endpoint     string
	UsePathStyle bool
}

// objectAPI is the subset of the S3 client used here
type objectAPI interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Remote reads and writes one object. AWS credentials come from the default
// chain, so authorization only checks that the bucket is reachable.
type Remote struct {
	client objectAPI
	config Config
}

// Ensure Remote implements the interface
var _ cloudsync.Remote = (*Remote)(nil)

// New creates a remote using the default AWS credential chain
func New(ctx context.Context, cfg Config) (*Remote, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: S3 bucket is required", model.ErrInvalidValue)
	}
	if cfg.Key == "" {
		cfg.Key = "combat-tracker.json"
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newWithClient(client, cfg), nil
}

func newWithClient(client objectAPI, cfg Config) *Remote {
	return &Remote{client: client, config: cfg}
}

func (r *Remote) Name() string {
	return "s3"
}

// AuthCodeURL is empty: there is no browser step
func (r *Remote) AuthCodeURL(_, _ string) string {
	return ""
}

// Exchange checks bucket access and returns a marker credential
func (r *Remote) Exchange(ctx context.Context, _, _ string) (*oauth2.Token, error) {
	_, err := r.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(r.config.Bucket)})
	if err != nil {
		return nil, fmt.Errorf("head bucket %s: %w", r.config.Bucket, err)
	}
	return &oauth2.Token{AccessToken: "s3:" + r.config.Bucket, TokenType: "aws"}, nil
}

func (r *Remote) TokenSource(_ context.Context, tok *oauth2.Token) oauth2.TokenSource {
	return oauth2.StaticTokenSource(tok)
}

// Revoke is a no-op; the stored marker is simply forgotten
func (r *Remote) Revoke(context.Context, oauth2.TokenSource) error {
	return nil
}

func (r *Remote) Download(ctx context.Context, _ oauth2.TokenSource) ([]byte, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.config.Bucket),
		Key:    aws.String(r.config.Key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, cloudsync.ErrRemoteNotFound
		}
		return nil, fmt.Errorf("get s3://%s/%s: %w", r.config.Bucket, r.config.Key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3 object: %w", err)
	}
	return data, nil
}

func (r *Remote) Upload(ctx context.Context, _ oauth2.TokenSource, data []byte) error {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.config.Bucket),
		Key:         aws.String(r.config.Key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", r.config.Bucket, r.config.Key, err)
	}
	return nil
}
