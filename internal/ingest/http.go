package ingest

import (
	"context"
	"log/slog"

	"github.com/AngelCh415/sales-compare/internal/utils"
)

// FetchWithRetry downloads url, retrying transport errors and 5xx/408/429
// responses with exponential backoff plus jitter.
func FetchWithRetry(ctx context.Context, c HTTPClient, url string, bo utils.Backoff, log *slog.Logger) ([]byte, error) {
	var body []byte
	err := bo.Do(ctx, func(i int) error {
		b, err := fetch(ctx, c, url)
		if err != nil {
			if log != nil {
				log.WarnContext(ctx, "dataset fetch failed", slog.Int("attempt", i+1), slog.String("err", err.Error()))
			}
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}
