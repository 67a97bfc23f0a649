package provision

import "encoding/json"

const policyVersion = "2012-10-17"

// PolicyDocument is an S3 bucket policy. Field names follow the IAM
// policy grammar, hence the capitalized JSON keys.
type PolicyDocument struct {
	Version   string            `json:"Version"`
	Statement []PolicyStatement `json:"Statement"`
}

type PolicyStatement struct {
	Sid       string `json:"Sid"`
	Effect    string `json:"Effect"`
	Principal string `json:"Principal"`
	Action    string `json:"Action"`
	Resource  string `json:"Resource"`
}

// BucketARN returns the ARN covering every object in the bucket.
func BucketARN(bucket string) string {
	return "arn:aws:s3:::" + bucket + "/*"
}

// PublicReadPolicy builds the policy granting anonymous GetObject on all
// objects in the bucket.
func PublicReadPolicy(bucket string) (string, error) {
	doc := PolicyDocument{
		Version: policyVersion,
		Statement: []PolicyStatement{
			{
				Sid:       "PublicReadGetObject",
				Effect:    "Allow",
				Principal: "*",
				Action:    "s3:GetObject",
				Resource:  BucketARN(bucket),
			},
		},
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
