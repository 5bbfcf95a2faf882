// Package bucket uploads FILE submissions to an S3-compatible bucket.
package bucket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/mycelian/postybirb/internal/model"
	"github.com/mycelian/postybirb/internal/websites"
)

const Name = "s3-bucket"

// Uploader is the slice of the S3 client the destination uses. *s3.Client satisfies it.
type Uploader interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Options configures client construction.
type Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// NewClient builds an S3 client. A custom endpoint switches to path-style addressing (MinIO and friends).
func NewClient(ctx context.Context, opts Options) (*s3.Client, error) {
	loaders := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

type Site struct {
	up     Uploader
	bucket string
}

func New(up Uploader, bucket string) *Site {
	return &Site{up: up, bucket: bucket}
}

func (s *Site) Register(r *websites.Registry) error {
	return r.Register(Name, "S3 Bucket", websites.Capability{
		Kind:         model.SubmissionTypeFile,
		DefaultModel: defaultModel,
		Validate:     s.validate,
		Post:         s.post,
	})
}

func defaultModel() model.FieldData {
	m := websites.BaseModel()
	m["prefix"] = ""
	return m
}

func (s *Site) validate(_ context.Context, d websites.PostData) (websites.ValidationResult, error) {
	var res websites.ValidationResult
	if d.Submission == nil || len(d.Submission.Files) == 0 {
		res.Errors = append(res.Errors, websites.ValidationMessage{Message: "at least one file is required"})
		return res, nil
	}
	for _, f := range d.Submission.Files {
		if f.File == nil || f.File.Path == "" {
			res.Errors = append(res.Errors, websites.ValidationMessage{Field: f.ID, Message: "file " + f.FileName + " has no stored content"})
		}
	}
	if websites.StringField(d.Fields, websites.FieldTitle) == "" {
		res.Warnings = append(res.Warnings, websites.ValidationMessage{Field: websites.FieldTitle, Message: "manifest will have an empty title"})
	}
	return res, nil
}

type manifest struct {
	SubmissionID string   `json:"submissionId"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags"`
	Files        []string `json:"files"`
}

func (s *Site) keyPrefix(d websites.PostData) string {
	return path.Join(websites.StringField(d.Fields, "prefix"), d.Submission.ID)
}

func (s *Site) post(ctx context.Context, d websites.PostData) (websites.PostResult, error) {
	prefix := s.keyPrefix(d)
	m := manifest{
		SubmissionID: d.Submission.ID,
		Title:        websites.StringField(d.Fields, websites.FieldTitle),
		Description:  websites.DescriptionText(d.Fields),
		Tags:         websites.Tags(d.Fields),
	}

	for _, f := range orderedFiles(d.Submission) {
		key := path.Join(prefix, f.ID+"-"+path.Base(f.FileName))
		if err := s.putFile(ctx, key, f.File); err != nil {
			return websites.PostResult{}, fmt.Errorf("upload %s: %w", f.FileName, err)
		}
		m.Files = append(m.Files, key)
	}

	body, err := json.Marshal(m)
	if err != nil {
		return websites.PostResult{}, err
	}
	if _, err := s.up.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(path.Join(prefix, "manifest.json")),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return websites.PostResult{}, fmt.Errorf("upload manifest: %w", err)
	}

	return websites.PostResult{
		Status:    websites.PostSuccess,
		SourceURL: fmt.Sprintf("s3://%s/%s/", s.bucket, prefix),
	}, nil
}

func (s *Site) putFile(ctx context.Context, key string, blob *model.FileBlob) error {
	fh, err := os.Open(blob.Path)
	if err != nil {
		return err
	}
	defer func() { _ = fh.Close() }()
	_, err = s.up.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          fh,
		ContentType:   aws.String(blob.MimeType),
		ContentLength: aws.Int64(blob.Size),
	})
	return err
}

// orderedFiles follows metadata.order, then appends anything it does not mention.
func orderedFiles(sub *model.Submission) []*model.SubmissionFile {
	var out []*model.SubmissionFile
	seen := map[string]bool{}
	if order, ok := sub.Metadata[model.MetadataOrder].([]any); ok {
		for _, raw := range order {
			id, _ := raw.(string)
			if f := sub.FileByID(id); f != nil && !seen[id] {
				out = append(out, f)
				seen[id] = true
			}
		}
	}
	for _, f := range sub.Files {
		if !seen[f.ID] {
			out = append(out, f)
		}
	}
	return out
}
