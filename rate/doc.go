// Package rate implements a fixed-window request limiter.
//
// The limiter counts hits per key inside aligned time windows and rejects
// once a window's count passes the configured limit. Counters live in a
// pluggable [CounterStore]; [MemoryStore] serves single-process setups and
// [RedisStore] shares windows across instances. The clock is injectable so
// window boundaries can be driven deterministically in tests.
//
// Two presets cover the common cases: [NewStrict] for credential endpoints
// (10 requests per 15 minutes) and [NewLenient] for authenticated traffic
// (100 requests per minute).
package rate
