package provision

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// ErrorKind is a coarse failure classification so callers can map a
// failed run to an exit code or HTTP status without string matching.
type ErrorKind string

const (
	KindNone          ErrorKind = ""
	KindInvalidInput  ErrorKind = "invalid_input"
	KindConflict      ErrorKind = "conflict"
	KindAccessDenied  ErrorKind = "access_denied"
	KindInvalidRegion ErrorKind = "invalid_region"
	KindRemote        ErrorKind = "remote"
	KindNetwork       ErrorKind = "network"
)

// Classify maps a remote error to its kind. Service errors carry an API
// error code; anything else is treated as a transport failure.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var exists *types.BucketAlreadyExists
	var owned *types.BucketAlreadyOwnedByYou
	if errors.As(err, &exists) || errors.As(err, &owned) {
		return KindConflict
	}
	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "BucketAlreadyExists", "BucketAlreadyOwnedByYou":
			return KindConflict
		case "AccessDenied", "AllAccessDisabled", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return KindAccessDenied
		case "InvalidLocationConstraint", "IllegalLocationConstraintException":
			return KindInvalidRegion
		}
		return KindRemote
	}
	return KindNetwork
}

// OwnedByCaller reports whether a creation conflict is against a bucket
// the caller already owns. Re-running provisioning on an owned bucket is
// a convergent operation a caller may choose to tolerate.
func OwnedByCaller(err error) bool {
	var owned *types.BucketAlreadyOwnedByYou
	if errors.As(err, &owned) {
		return true
	}
	var ae smithy.APIError
	return errors.As(err, &ae) && ae.ErrorCode() == "BucketAlreadyOwnedByYou"
}
