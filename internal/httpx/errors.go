package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	apierrors "github.com/AngelCh415/sales-compare/internal/errors"
	"github.com/AngelCh415/sales-compare/internal/metrics"
	"github.com/AngelCh415/sales-compare/internal/period"
)

// apiError converts a service error to its API form. Unknown errors become 500s.
func apiError(err error) *apierrors.APIError {
	var apiErr *apierrors.APIError
	var rangeErr *period.InvalidRangeError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &rangeErr):
		return apierrors.NewWithDetails(http.StatusBadRequest, apierrors.CodeInvalidRange, rangeErr.Error(), map[string]string{"reason": rangeErr.Reason})
	case errors.Is(err, period.ErrInvalidRange):
		return apierrors.New(http.StatusBadRequest, apierrors.CodeInvalidRange, err.Error())
	case errors.Is(err, metrics.ErrEmptyDataset):
		return apierrors.New(http.StatusUnprocessableEntity, apierrors.CodeEmptyDataset, "No approved sales with a date are loaded; pass start and end explicitly")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apierrors.New(http.StatusServiceUnavailable, apierrors.CodeCanceled, fmt.Sprintf("Request did not complete: %v", err))
	default:
		return apierrors.ErrInternalServer
	}
}
