package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache stores string values with a TTL. A miss is (_, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Close() error
}

// GenerateKey builds a namespaced key from the hashed parts, e.g. "translate:<sha256>".
func GenerateKey(namespace string, parts ...string) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(parts, "\x00")))
	return namespace + ":" + hex.EncodeToString(h.Sum(nil))
}
