package planservice

import (
	"fmt"

	"github.com/starford/bujo/internal/apperr"
	"github.com/starford/bujo/internal/models"
)

// Bucket selects items by status and date relative to today.
type Bucket string

// Item buckets. Future and expired hold pending items dated from today on
// and before today respectively.
const (
	BucketAll       Bucket = "all"
	BucketFuture    Bucket = "future"
	BucketExpired   Bucket = "expired"
	BucketCompleted Bucket = "completed"
	BucketAbandoned Bucket = "abandoned"
)

// ParseBucket validates a bucket name. Empty means BucketAll.
func ParseBucket(s string) (Bucket, error) {
	switch b := Bucket(s); b {
	case "":
		return BucketAll, nil
	case BucketAll, BucketFuture, BucketExpired, BucketCompleted, BucketAbandoned:
		return b, nil
	}
	return "", fmt.Errorf("planservice: unknown bucket %q: %w", s, apperr.ErrInvalidInput)
}

func (b Bucket) contains(it models.Item, today string) bool {
	switch b {
	case BucketFuture:
		return it.Status == models.StatusPending && it.Date >= today
	case BucketExpired:
		return it.Status == models.StatusPending && it.Date < today
	case BucketCompleted:
		return it.Status == models.StatusCompleted
	case BucketAbandoned:
		return it.Status == models.StatusAbandoned
	}
	return true
}
