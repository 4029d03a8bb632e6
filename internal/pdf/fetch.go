package pdf

import (
	"context"

	"github.com/dacsang97/mdbind/internal/models"
	"github.com/sourcegraph/conc/stream"
)

// fetchInOrder downloads every URL and hands the bytes to consume strictly
// in input order. The first error stops consumption and is returned.
func (b *Binder) fetchInOrder(ctx context.Context, urls []string, consume func(i int, data []byte) error) error {
	if b.prefetch <= 1 {
		for i, url := range urls {
			data, err := b.fetch(ctx, i, url)
			if err != nil {
				return err
			}
			if err := consume(i, data); err != nil {
				return err
			}
		}
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var firstErr error
	s := stream.New().WithMaxGoroutines(b.prefetch)
	for i, url := range urls {
		i, url := i, url
		s.Go(func() stream.Callback {
			data, err := b.fetch(ctx, i, url)
			return func() {
				if firstErr != nil {
					return
				}
				if err == nil {
					err = consume(i, data)
				}
				if err != nil {
					firstErr = err
					cancel()
				}
			}
		})
	}
	s.Wait()

	return firstErr
}

func (b *Binder) fetch(ctx context.Context, i int, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := b.src.GetBytes(ctx, url)
	if err != nil {
		return nil, &models.ImageFetchError{Index: i, URL: url, Err: err}
	}
	return data, nil
}
