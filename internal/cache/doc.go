// Package cache provides the response cache of the gateway: a sharded LRU
// with TTL expiry, keyed by a digest of the generation parameters.
//
// The cache is purely in-process and performs no I/O.
//
// Usage:
//
//	c, err := cache.New[gateway.Response](cache.Config{MaxSize: 1000, DefaultTTL: 5 * time.Minute})
//	key, err := cache.Key(cache.KeyParts{Prompt: prompt, Role: role, Temperature: 0.7, MaxTokens: 2048})
//	if err != nil {
//		return err
//	}
//	if resp, ok := c.Get(key); ok {
//		return resp
//	}
package cache
