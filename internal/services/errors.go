package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/labtrace/labtrace-backend/internal/apierr"
	"github.com/labtrace/labtrace-backend/internal/requestdata"
)

// storeErr normalizes raw store failures. Pool/context exhaustion maps to
// the retriable taxonomy entry; anything else stays wrapped for the
// handler layer to log and collapse into a generic internal error.
func storeErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apierr.ResourceExhausted("%s: store unavailable", op)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// caller extracts the tenant identity threaded in by the auth middleware.
func caller(ctx context.Context) (*requestdata.RequestData, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return nil, apierr.Unauthorized("request data not set in context")
	}
	return rd, nil
}
