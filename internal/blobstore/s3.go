package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"content-api/internal/domain"
)

// S3API is the subset of *s3.Client used by S3.
type S3API interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectVersions(ctx context.Context, in *s3.ListObjectVersionsInput, optFns ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3 maps containers to buckets on any S3 compatible service (AWS, R2, MinIO).
type S3 struct {
	client S3API
	region string
}

type S3Options struct {
	Region          string
	Endpoint        string // empty for AWS; e.g. https://<account>.r2.cloudflarestorage.com
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

func NewS3(client S3API, region string) *S3 {
	return &S3{client: client, region: region}
}

// DialS3 builds an SDK client from static credentials.
func DialS3(ctx context.Context, o S3Options) (*S3, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(o.AccessKeyID, o.SecretAccessKey, "")),
		awsconfig.WithRegion(o.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(opt *s3.Options) {
		if o.Endpoint != "" {
			opt.BaseEndpoint = aws.String(o.Endpoint)
		}
		opt.UsePathStyle = o.UsePathStyle
	})
	return NewS3(client, o.Region), nil
}

func (s *S3) EnsureContainers(ctx context.Context, names ...string) error {
	for _, name := range names {
		_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(name)})
		if err == nil {
			continue
		}
		if !isNotFound(err) {
			return fmt.Errorf("%w: head bucket %s: %v", domain.ErrStoreUnavailable, name, err)
		}
		in := &s3.CreateBucketInput{Bucket: aws.String(name)}
		if s.region != "" && s.region != "auto" && s.region != "us-east-1" {
			in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
				LocationConstraint: types.BucketLocationConstraint(s.region),
			}
		}
		if _, err := s.client.CreateBucket(ctx, in); err != nil {
			var owned *types.BucketAlreadyOwnedByYou
			if errors.As(err, &owned) {
				continue
			}
			return fmt.Errorf("%w: create bucket %s: %v", domain.ErrStoreUnavailable, name, err)
		}
	}
	return nil
}

func (s *S3) Upload(ctx context.Context, container string, r io.Reader, filename string) (string, error) {
	if r == nil {
		return "", fmt.Errorf("%w: empty stream", domain.ErrUpload)
	}
	name := NewName(filename)
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(container),
		Key:         aws.String(name),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("%w: put %s/%s: %v", domain.ErrUpload, container, name, err)
	}
	return name, nil
}

// Delete removes every version and delete marker of name. Buckets without
// versioning support fall back to a plain delete.
func (s *S3) Delete(ctx context.Context, container, name string) error {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(container), Key: aws.String(name)})
	if err != nil {
		if isNotFound(err) {
			return domain.NotFoundf("blob %s/%s", container, name)
		}
		return fmt.Errorf("%w: head %s/%s: %v", domain.ErrStoreUnavailable, container, name, err)
	}

	versions, err := s.versions(ctx, container, name)
	if err != nil || len(versions) == 0 {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(container), Key: aws.String(name)})
		if err != nil {
			return fmt.Errorf("%w: delete %s/%s: %v", domain.ErrStoreUnavailable, container, name, err)
		}
		return nil
	}
	for _, v := range versions {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket:    aws.String(container),
			Key:       aws.String(name),
			VersionId: aws.String(v),
		})
		if err != nil && !isNotFound(err) {
			return fmt.Errorf("%w: delete %s/%s version %s: %v", domain.ErrStoreUnavailable, container, name, v, err)
		}
	}
	return nil
}

func (s *S3) versions(ctx context.Context, container, name string) ([]string, error) {
	var ids []string
	in := &s3.ListObjectVersionsInput{Bucket: aws.String(container), Prefix: aws.String(name)}
	for {
		out, err := s.client.ListObjectVersions(ctx, in)
		if err != nil {
			return nil, err
		}
		for _, v := range out.Versions {
			if aws.ToString(v.Key) == name && v.VersionId != nil {
				ids = append(ids, aws.ToString(v.VersionId))
			}
		}
		for _, m := range out.DeleteMarkers {
			if aws.ToString(m.Key) == name && m.VersionId != nil {
				ids = append(ids, aws.ToString(m.VersionId))
			}
		}
		if !aws.ToBool(out.IsTruncated) {
			return ids, nil
		}
		in.KeyMarker = out.NextKeyMarker
		in.VersionIdMarker = out.NextVersionIdMarker
	}
}

func (s *S3) List(ctx context.Context, container string) ([]Info, error) {
	var out []Info
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{Bucket: aws.String(container)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			if isNotFound(err) {
				return nil, domain.NotFoundf("container %s", container)
			}
			return nil, fmt.Errorf("%w: list %s: %v", domain.ErrStoreUnavailable, container, err)
		}
		for _, o := range page.Contents {
			out = append(out, Info{
				Name:         aws.ToString(o.Key),
				SizeBytes:    aws.ToInt64(o.Size),
				LastModified: aws.ToTime(o.LastModified).UTC(),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func isNotFound(err error) bool {
	var (
		nf  *types.NotFound
		nsk *types.NoSuchKey
		nsb *types.NoSuchBucket
	)
	if errors.As(err, &nf) || errors.As(err, &nsk) || errors.As(err, &nsb) {
		return true
	}
	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "NotFound", "NoSuchKey", "NoSuchBucket":
			return true
		}
	}
	return false
}
