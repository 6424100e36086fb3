// Package cache keeps decoded sound clips so repeated loads skip decoding.
// It has an in-memory LRU (L1) bounded in bytes and a persistent disk
// cache (L2) compressed with zstd. Manager ties both levels together and
// satisfies soundpool.ClipCache.
package cache
