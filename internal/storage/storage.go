package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/qaforge/backend/internal/storage/models"
)

var (
	// ErrNotFound is returned by Get when no object exists at the key.
	ErrNotFound = errors.New("object not found")
	// ErrDecode is returned by Get when the stored bytes do not decode into
	// the expected shape.
	ErrDecode = errors.New("object decode failed")
)

// RecordPrefix scopes all submission objects in the bucket.
const RecordPrefix = "qa/"

// ObjectStore is the gateway to the underlying bucket. Nothing above this
// interface talks to the storage service directly.
type ObjectStore interface {
	// Put JSON-encodes value and writes it at key, overwriting any existing
	// object. The write is all-or-nothing.
	Put(ctx context.Context, key string, value interface{}) error

	// Get decodes the object at key into out.
	Get(ctx context.Context, key string, out interface{}) error

	// ListPage returns one page of keys under prefix. An empty nextToken
	// means the listing is exhausted; callers loop until then to see the
	// full prefix.
	ListPage(ctx context.Context, prefix, continuationToken string) (keys []string, nextToken string, err error)
}

// SubmissionKey builds the object key for one pair in a submission batch:
// timestamp plus a wallet fragment plus the ordinal index. Unique within a
// batch and naturally chronological under listing.
func SubmissionKey(unixMillis int64, walletAddress string, index int) string {
	fragment := walletAddress
	if len(fragment) > 8 {
		fragment = fragment[2:8]
	}
	return fmt.Sprintf("%s%d_%s_%d.json", RecordPrefix, unixMillis, fragment, index)
}

// ListWalletRecords pages through the entire record prefix and returns every
// record belonging to walletAddress. The bucket has no secondary index, so
// this is a full scan. Objects that fail to decode are skipped.
func ListWalletRecords(ctx context.Context, store ObjectStore, walletAddress string) ([]models.KeyedRecord, error) {
	var (
		records []models.KeyedRecord
		token   string
	)

	for {
		keys, nextToken, err := store.ListPage(ctx, RecordPrefix, token)
		if err != nil {
			return nil, fmt.Errorf("failed to list records: %w", err)
		}

		for _, key := range keys {
			var record models.Record
			if err := store.Get(ctx, key, &record); err != nil {
				continue
			}
			if strings.EqualFold(record.WalletAddress, walletAddress) {
				records = append(records, models.KeyedRecord{Key: key, Record: record})
			}
		}

		if nextToken == "" {
			return records, nil
		}
		token = nextToken
	}
}
