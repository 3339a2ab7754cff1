package utils

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/ibrahim-bhat/billflow_backend/config"
)

var validate = validator.New()

// ValidateInput checks an input struct's validate tags. Failures come
// back as ValidationError so callers reject before opening a tx.
func ValidateInput(input any) error {
	if err := validate.Struct(input); err != nil {
		return NewValidationError("invalid input: %v", err)
	}
	return nil
}

// check if id exists, return RecordNotFound error
func ValidateResourceId[T any](ctx context.Context, id interface{}) error {

	count, err := ResourceCountWhere[T](ctx, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}

	return nil
}

// count records matching $condition
func ResourceCountWhere[T any](ctx context.Context, condition string, value ...interface{}) (int64, error) {
	var model T

	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&model).Where(condition, value...).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
