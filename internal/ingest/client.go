package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AngelCh415/sales-compare/internal/utils"
)

// maxBodyBytes caps a downloaded dataset.
var maxBodyBytes int64 = 256 << 20

var ErrBodyTooLarge = errors.New("response body exceeds size limit")

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

func NewHTTPClient(timeout time.Duration) HTTPClient {
	return &http.Client{Timeout: timeout}
}

type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("non-2xx: %d body=%s", e.Code, e.Body)
}

func fetch(ctx context.Context, c HTTPClient, url string) ([]byte, error) {
	if url == "" {
		return nil, utils.Permanent(errors.New("empty url"))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, utils.Permanent(err)
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		serr := &StatusError{Code: resp.StatusCode, Body: string(b)}
		// 4xx no se reintenta, salvo 408 y 429
		if resp.StatusCode >= 400 && resp.StatusCode < 500 &&
			resp.StatusCode != http.StatusRequestTimeout && resp.StatusCode != http.StatusTooManyRequests {
			return nil, utils.Permanent(serr)
		}
		return nil, serr
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > maxBodyBytes {
		return nil, utils.Permanent(fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, maxBodyBytes))
	}
	return b, nil
}
