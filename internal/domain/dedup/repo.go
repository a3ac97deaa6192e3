package dedup

import "context"

type Repository interface {
	// InsertIgnoredPair marks two identities as not-a-duplicate. Inserting
	// the same pair twice is a no-op.
	InsertIgnoredPair(ctx context.Context, keyA, keyB string) error
	// IgnoredTags returns the set of PairTag values for all ignored pairs.
	IgnoredTags(ctx context.Context) (map[string]bool, error)
}
