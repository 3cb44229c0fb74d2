// Package service provides business logic implementations.
package service

import (
	"errors"
	"fmt"

	apierrors "github.com/HeadupandFace/cbt-companion-app/internal/pkg/errors"
	"github.com/HeadupandFace/cbt-companion-app/internal/repository"
)

// storeError attaches the user-facing error for a failed store call. An
// unavailable store always surfaces as ErrDatabaseUnavailable.
func storeError(op string, err error, fallback *apierrors.APIError) error {
	if errors.Is(err, repository.ErrUnavailable) {
		return fmt.Errorf("%s: %w: %w", op, apierrors.ErrDatabaseUnavailable, err)
	}
	return fmt.Errorf("%s: %w: %w", op, fallback, err)
}
