package materials

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

var (
	ErrInvalidConfig = errors.New("materials: invalid configuration")

	// Upload validation.
	ErrEmptyFile    = errors.New("materials: file is empty")
	ErrFileTooLarge = errors.New("materials: file exceeds size limit")
	ErrNotPDF       = errors.New("materials: only PDF files are accepted")

	// Storage operations.
	ErrNotFound     = errors.New("materials: file not found")
	ErrAccessDenied = errors.New("materials: access denied")
	ErrUploadFailed = errors.New("materials: upload failed")
	ErrDeleteFailed = errors.New("materials: delete failed")
)

// wrapS3Error maps S3 failures onto package sentinels.
// The original error is formatted with %v so callers match sentinels only.
func wrapS3Error(err error, fallback error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case "AccessDenied", "Forbidden":
			return fmt.Errorf("%w: %v", ErrAccessDenied, err)
		}
	}

	var notFound *types.NoSuchKey
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	return fmt.Errorf("%w: %v", fallback, err)
}
