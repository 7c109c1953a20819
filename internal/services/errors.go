package services

import (
	"errors"
	"fmt"

	"github.com/AnshRaj112/serenify-journal/pkg/utils"
)

var (
	// ErrUnauthenticated means a mutation was attempted without a resolved user.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrNotFoundOrUnauthorized covers both a missing entry and one owned by
	// someone else, so callers cannot probe for other users' ids.
	ErrNotFoundOrUnauthorized = errors.New("entry not found or unauthorized")
	// ErrValidation matches every *utils.ValidationError.
	ErrValidation = utils.ErrValidation
	// ErrStoreUnavailable wraps failures of a backing store.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrUploadsDisabled is returned by AttachImage when no blob store is configured.
	ErrUploadsDisabled = errors.New("image uploads are not configured")
)

func storeFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
