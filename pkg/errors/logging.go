package errors

import (
	"go.uber.org/zap"
)

// LogError logs err with its application code, if it has one.
func LogError(logger *zap.Logger, err error, msg string, fields ...zap.Field) {
	if err == nil {
		return
	}

	allFields := make([]zap.Field, 0, len(fields)+3)
	allFields = append(allFields, zap.Error(err))

	var appErr *AppError
	if As(err, &appErr) {
		allFields = append(allFields,
			zap.String("error_code", appErr.Code()),
			zap.Bool("retryable", appErr.Retryable()),
		)
	}

	allFields = append(allFields, fields...)
	logger.Error(msg, allFields...)
}
