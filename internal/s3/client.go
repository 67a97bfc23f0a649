package s3

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/arencloud/sitebucket/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
)

func normalizeEndpoint(endpoint string, useSSL bool) (host string, secure bool) {
	secure = useSSL
	if endpoint == "" {
		return "", secure
	}
	// If endpoint contains a scheme, parse and strip it; the scheme wins over the useSSL flag
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		if u, err := url.Parse(endpoint); err == nil {
			if u.Scheme == "https" {
				secure = true
			} else if u.Scheme == "http" {
				secure = false
			}
			return u.Host, secure
		}
	}
	return endpoint, secure
}

func forcePathStyle(p models.Provider) bool {
	// Path-style for non-AWS by default; AWS prefers virtual-hosted
	pt := strings.ToLower(strings.TrimSpace(p.Type))
	return pt == "minio" || pt == "mcg" || pt == "generic" || pt == ""
}

func baseURL(host string, secure bool) string {
	if secure {
		return "https://" + host
	}
	return "http://" + host
}

// NewFromProvider builds an S3 client for a stored provider. Empty access
// keys fall back to the SDK default chain (env, shared config, IMDS).
func NewFromProvider(ctx context.Context, p models.Provider) (*awss3.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(p.Region),
	}
	if p.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(p.AccessKey, p.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	host, secure := normalizeEndpoint(p.Endpoint, p.UseSSL)
	return awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		o.UsePathStyle = forcePathStyle(p)
		if host != "" {
			o.BaseEndpoint = aws.String(baseURL(host, secure))
		}
	}), nil
}
