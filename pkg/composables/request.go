package composables

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-playground/form"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/organi-flow/pkg/constants"
)

var queryDecoder = form.NewDecoder()

type Params struct {
	IP        string
	UserAgent string
	RequestID string
	Request   *http.Request
	Writer    http.ResponseWriter
}

// UseParams returns the request parameters from the context.
// If the parameters are not found, the second return value will be false.
func UseParams(ctx context.Context) (*Params, bool) {
	params, ok := ctx.Value(constants.ParamsKey).(*Params)
	return params, ok
}

// WithParams returns a new context with the request parameters.
func WithParams(ctx context.Context, params *Params) context.Context {
	return context.WithValue(ctx, constants.ParamsKey, params)
}

// UseLogger returns the request scoped logger. Outside of a request it falls
// back to the standard logger.
func UseLogger(ctx context.Context) *logrus.Entry {
	switch logger := ctx.Value(constants.LoggerKey).(type) {
	case *logrus.Entry:
		return logger
	case *logrus.Logger:
		return logrus.NewEntry(logger)
	default:
		return logrus.NewEntry(logrus.StandardLogger())
	}
}

// WithLogger returns a new context carrying logger.
func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

// UseIP returns the IP address from the context.
// If the IP address is not found, the second return value will be false.
func UseIP(ctx context.Context) (string, bool) {
	params, ok := UseParams(ctx)
	if !ok {
		return "", false
	}
	return params.IP, true
}

// UseRequestID returns the request id assigned by the logging middleware.
func UseRequestID(ctx context.Context) string {
	params, ok := UseParams(ctx)
	if !ok {
		return ""
	}
	return params.RequestID
}

// UseQuery decodes the query string of r into a T.
func UseQuery[T any](v T, r *http.Request) (T, error) {
	return DecodeQuery(v, r.URL.Query())
}

func DecodeQuery[T any](v T, values url.Values) (T, error) {
	if err := queryDecoder.Decode(&v, values); err != nil {
		return v, err
	}
	return v, nil
}
