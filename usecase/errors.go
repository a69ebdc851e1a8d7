package usecase

import (
	"errors"

	"github.com/fastygo/taskreminder/domain"
)

// StoreError passes classified errors through and marks anything else as an
// internal failure of the named operation.
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var dErr *domain.Error
	if errors.As(err, &dErr) {
		return err
	}
	return domain.WrapError(domain.ErrCodeInternal, op, err)
}
