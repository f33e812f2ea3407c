package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/organi-flow/pkg/constants"
)

func loggerFromContext(ctx context.Context) *logrus.Entry {
	if ctx == nil {
		return nil
	}
	v := ctx.Value(constants.LoggerKey)
	switch typed := v.(type) {
	case *logrus.Entry:
		return typed
	case *logrus.Logger:
		return logrus.NewEntry(typed)
	default:
		return nil
	}
}

func logWithFields(ctx context.Context, level logrus.Level, msg string, fields logrus.Fields) {
	logger := loggerFromContext(ctx)
	if logger == nil {
		return
	}
	logger.WithFields(fields).Log(level, msg)
}

func logRejected(ctx context.Context, op string, err error, extra logrus.Fields) {
	fields := logrus.Fields{
		"op":     op,
		"reason": errorKind(err),
		"error":  err.Error(),
	}
	for k, v := range extra {
		fields[k] = v
	}
	logWithFields(ctx, logrus.WarnLevel, "org.tree.rejected", fields)
}
