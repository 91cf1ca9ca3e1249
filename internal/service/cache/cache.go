package cache

import "time"

// BytesCache stores raw bytes under a key with a TTL. Implementations back
// the memory statistics endpoints so repeated polls do not rescan partitions.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
