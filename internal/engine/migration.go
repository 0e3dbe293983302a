package engine

import "fmt"

// Migrate copies every bucket and key from src into dst.
// This works for:
// - File snapshots -> Badger (the "upgrade")
// - Badger -> File snapshots (the "backup")
func Migrate(src KVReader, dst KVWriter) (int, error) {
	// 1. Get all buckets from the source
	buckets, err := src.Buckets()
	if err != nil {
		return 0, fmt.Errorf("failed to list buckets: %w", err)
	}

	copied := 0
	for _, b := range buckets {
		// 2. Dump the full bucket
		data, err := src.List(b, "")
		if err != nil {
			return copied, fmt.Errorf("failed to dump bucket %s: %w", b, err)
		}

		// 3. Push every key into the destination
		for k, v := range data {
			if err := dst.Set(b, k, v); err != nil {
				return copied, fmt.Errorf("failed to set key %s/%s in destination: %w", b, k, err)
			}
			copied++
		}
	}

	return copied, nil
}
