package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"threadlab/internal/blob"
	"threadlab/pkg/domain"
)

const sampleContentType = "text/plain; charset=utf-8"

type sample struct {
	key  string
	body string
	meta map[string]string
}

// SeedSamples uploads every lifecycle and technique code sample that is not
// yet stored and returns how many were written. With refresh set, existing
// samples are replaced.
func SeedSamples(ctx context.Context, store blob.Store, c domain.Catalog, refresh bool) (int, error) {
	written := 0
	for _, smp := range catalogSamples(c) {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if refresh {
			if _, err := store.Delete(ctx, smp.key); err != nil {
				return written, fmt.Errorf("delete sample %s: %w", smp.key, err)
			}
		}
		_, err := store.Put(ctx, smp.key, strings.NewReader(smp.body), blob.PutOptions{
			ContentType: sampleContentType,
			Metadata:    smp.meta,
		})
		switch {
		case err == nil:
			written++
		case errors.Is(err, blob.ErrExists):
		default:
			return written, fmt.Errorf("put sample %s: %w", smp.key, err)
		}
	}
	return written, nil
}

func catalogSamples(c domain.Catalog) []sample {
	out := make([]sample, 0, len(c.States)+len(c.Techniques))
	for _, s := range c.States {
		if s.SampleKey == "" || s.CodeSample == "" {
			continue
		}
		out = append(out, sample{
			key:  s.SampleKey,
			body: s.CodeSample,
			meta: map[string]string{"kind": "lifecycle", "id": string(s.ID)},
		})
	}
	for _, t := range c.Techniques {
		if t.SampleKey == "" || t.CodeSample == "" {
			continue
		}
		out = append(out, sample{
			key:  t.SampleKey,
			body: t.CodeSample,
			meta: map[string]string{"kind": "technique", "id": string(t.ID)},
		})
	}
	return out
}
