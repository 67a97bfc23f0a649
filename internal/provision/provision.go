// Package provision turns an empty bucket name into a publicly readable
// static-website bucket. The pipeline is fixed and sequential: create the
// bucket, open up public access, enable website hosting, attach the
// public-read policy. There is no rollback; a failure mid-pipeline leaves
// the bucket in whatever state the completed steps produced, and the
// Result records exactly which steps those were.
package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arencloud/sitebucket/internal/logging"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type Step string

const (
	StepCreateBucket Step = "create_bucket"
	StepPublicAccess Step = "public_access"
	StepWebsite      Step = "website"
	StepPolicy       Step = "policy"
)

// Website document names served by every provisioned bucket. Uploading
// the documents themselves is out of scope; the bucket is configured to
// serve them once they exist.
const (
	IndexDocument = "index.html"
	ErrorDocument = "error.html"
)

// legacyRegion is the S3 default region. CreateBucket rejects an explicit
// location constraint for it, so the constraint is sent for every other
// region and omitted for this one.
const legacyRegion = "us-east-1"

type Request struct {
	Bucket string
	Region string
}

func (r Request) validate() error {
	if r.Bucket == "" {
		return errors.New("bucket name is required")
	}
	if r.Region == "" {
		return errors.New("region is required")
	}
	return nil
}

type StepResult struct {
	Step     Step
	Err      error
	Duration time.Duration
}

// Result reports a provisioning attempt. Steps holds every step that was
// attempted, in order; on failure Err wraps the first error and Kind
// classifies it. The caller decides what to do with a failure (exit code,
// HTTP status); Provision itself never panics or exits.
type Result struct {
	Bucket string
	Region string
	URL    string
	Steps  []StepResult
	Err    error
	Kind   ErrorKind
}

func (r *Result) OK() bool { return r.Err == nil }

// BucketAPI is the subset of the S3 API the pipeline needs. *s3.Client
// satisfies it; tests inject fakes.
type BucketAPI interface {
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutPublicAccessBlock(ctx context.Context, params *s3.PutPublicAccessBlockInput, optFns ...func(*s3.Options)) (*s3.PutPublicAccessBlockOutput, error)
	PutBucketWebsite(ctx context.Context, params *s3.PutBucketWebsiteInput, optFns ...func(*s3.Options)) (*s3.PutBucketWebsiteOutput, error)
	PutBucketPolicy(ctx context.Context, params *s3.PutBucketPolicyInput, optFns ...func(*s3.Options)) (*s3.PutBucketPolicyOutput, error)
}

var _ BucketAPI = (*s3.Client)(nil)

type Provisioner struct {
	api BucketAPI
	log logging.Logger
}

func New(api BucketAPI, log logging.Logger) *Provisioner {
	if log == nil {
		log = logging.Nop()
	}
	return &Provisioner{api: api, log: log}
}

// Provision runs the pipeline for one bucket and stops at the first
// failure. The public-access step must run before the policy step: S3
// rejects a public policy while the public-access block is active.
func (p *Provisioner) Provision(ctx context.Context, req Request) *Result {
	res := &Result{Bucket: req.Bucket, Region: req.Region}
	if err := req.validate(); err != nil {
		res.Err = err
		res.Kind = KindInvalidInput
		return res
	}
	steps := []struct {
		name Step
		fn   func(context.Context, Request) error
	}{
		{StepCreateBucket, p.createBucket},
		{StepPublicAccess, p.allowPublicAccess},
		{StepWebsite, p.enableWebsite},
		{StepPolicy, p.attachPolicy},
	}
	for _, st := range steps {
		started := time.Now()
		err := st.fn(ctx, req)
		res.Steps = append(res.Steps, StepResult{Step: st.name, Err: err, Duration: time.Since(started)})
		if err != nil {
			res.Err = fmt.Errorf("%s: %w", st.name, err)
			res.Kind = Classify(err)
			p.log.Error("provision step failed", "bucket", req.Bucket, "step", string(st.name), "kind", string(res.Kind), "error", err)
			return res
		}
		p.log.Info("provision step ok", "bucket", req.Bucket, "step", string(st.name))
	}
	res.URL = WebsiteEndpoint(req.Bucket, req.Region)
	p.log.Info("bucket provisioned", "bucket", req.Bucket, "url", res.URL)
	return res
}

func (p *Provisioner) createBucket(ctx context.Context, req Request) error {
	in := &s3.CreateBucketInput{Bucket: aws.String(req.Bucket)}
	if req.Region != legacyRegion {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(req.Region),
		}
	}
	_, err := p.api.CreateBucket(ctx, in)
	return err
}

func (p *Provisioner) allowPublicAccess(ctx context.Context, req Request) error {
	_, err := p.api.PutPublicAccessBlock(ctx, &s3.PutPublicAccessBlockInput{
		Bucket: aws.String(req.Bucket),
		PublicAccessBlockConfiguration: &types.PublicAccessBlockConfiguration{
			BlockPublicAcls:       aws.Bool(false),
			IgnorePublicAcls:      aws.Bool(false),
			BlockPublicPolicy:     aws.Bool(false),
			RestrictPublicBuckets: aws.Bool(false),
		},
	})
	return err
}

func (p *Provisioner) enableWebsite(ctx context.Context, req Request) error {
	_, err := p.api.PutBucketWebsite(ctx, &s3.PutBucketWebsiteInput{
		Bucket: aws.String(req.Bucket),
		WebsiteConfiguration: &types.WebsiteConfiguration{
			IndexDocument: &types.IndexDocument{Suffix: aws.String(IndexDocument)},
			ErrorDocument: &types.ErrorDocument{Key: aws.String(ErrorDocument)},
		},
	})
	return err
}

func (p *Provisioner) attachPolicy(ctx context.Context, req Request) error {
	doc, err := PublicReadPolicy(req.Bucket)
	if err != nil {
		return err
	}
	_, err = p.api.PutBucketPolicy(ctx, &s3.PutBucketPolicyInput{
		Bucket: aws.String(req.Bucket),
		Policy: aws.String(doc),
	})
	return err
}

// WebsiteEndpoint returns the website URL for a provisioned bucket,
// following the S3 region-specific naming convention.
func WebsiteEndpoint(bucket, region string) string {
	return fmt.Sprintf("http://%s.s3-website-%s.amazonaws.com", bucket, region)
}
