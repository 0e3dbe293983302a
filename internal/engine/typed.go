package engine

import (
	"encoding/json"
	"fmt"
)

// Get retrieves a value and decodes it into T.
func Get[T any](s KVReader, bucket, key string) (T, error) {
	var result T
	raw, err := s.Get(bucket, key)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return result, fmt.Errorf("decode %s/%s: %w", bucket, key, err)
	}
	return result, nil
}

// Put encodes val as JSON and stores it.
func Put[T any](s KVWriter, bucket, key string, val T) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", bucket, key, err)
	}
	return s.Set(bucket, key, raw)
}

// List decodes every value under prefix in bucket.
func List[T any](s KVReader, bucket, prefix string) (map[string]T, error) {
	raw, err := s.List(bucket, prefix)
	if err != nil {
		return nil, err
	}
	out := make(map[string]T, len(raw))
	for k, v := range raw {
		var item T
		if err := json.Unmarshal(v, &item); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", bucket, k, err)
		}
		out[k] = item
	}
	return out, nil
}
