// Package dedup makes training-data ingestion idempotent at file granularity.
// The dedup identifier embedded in trained content is the sole de-duplication
// key; there is no separate index.
package dedup

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/lxhmx/text2sql/pkg/vanna"

	"github.com/patrickmn/go-cache"
)

// listingKey and listingTTL bound how often the full training-data listing is
// fetched when ingesting many files in one batch.
const (
	listingKey = "training-data"
	listingTTL = 30 * time.Second
)

// Lister is the subset of the SQL generation service the deduplicator needs.
type Lister interface {
	GetTrainingData(ctx context.Context) ([]vanna.TrainingRecord, error)
}

// ID derives the stable content identifier for a trainable file:
// "{typePrefix}_{fileName}_{first 8 hex chars of the md5 content hash}".
func ID(content []byte, fileName, typePrefix string) string {
	sum := md5.Sum(content)
	return fmt.Sprintf("%s_%s_%s", typePrefix, fileName, hex.EncodeToString(sum[:])[:8])
}

// Deduplicator checks whether file content was already ingested by searching
// all stored training items for the derived identifier.
type Deduplicator struct {
	lister  Lister
	listing *cache.Cache
}

func New(lister Lister) *Deduplicator {
	return &Deduplicator{
		lister:  lister,
		listing: cache.New(listingTTL, time.Minute),
	}
}

// ShouldIngest derives the dedup identifier and reports whether the content
// still needs training. On proceed, the caller must embed the identifier
// verbatim into the content passed to Train, otherwise future runs cannot
// detect it.
func (d *Deduplicator) ShouldIngest(ctx context.Context, content []byte, fileName, typePrefix string) (bool, string, error) {
	id := ID(content, fileName, typePrefix)

	records, err := d.trainingData(ctx)
	if err != nil {
		return false, id, fmt.Errorf("list training data: %w", err)
	}

	for _, record := range records {
		if strings.Contains(record.Content, id) || strings.Contains(record.Question, id) {
			return false, id, nil
		}
	}
	return true, id, nil
}

// Invalidate drops the cached listing. Called after new items were trained so
// the next batch sees them.
func (d *Deduplicator) Invalidate() {
	d.listing.Delete(listingKey)
}

func (d *Deduplicator) trainingData(ctx context.Context) ([]vanna.TrainingRecord, error) {
	if x, found := d.listing.Get(listingKey); found {
		return x.([]vanna.TrainingRecord), nil
	}
	records, err := d.lister.GetTrainingData(ctx)
	if err != nil {
		return nil, err
	}
	d.listing.Set(listingKey, records, cache.DefaultExpiration)
	return records, nil
}
