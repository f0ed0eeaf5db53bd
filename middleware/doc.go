// Package middleware provides net/http adapters for the authcore engine:
// a bearer-token guard, a fixed-window rate limit wrapper, and refresh
// cookie helpers for browser channels.
package middleware
