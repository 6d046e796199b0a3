// Package ratelimit holds the timing side of igharvest.
//
// Scheduler turns a Policy into concrete delays: the inter-item delay
// (longer and wider for stories and highlights), the occasional long
// session pause, and the retry back-off after connection or rate-limit
// errors. It has no side effects besides drawing random numbers.
//
// Sleeper executes those delays in small steps so that cancelling the
// context ends a wait within one poll interval. Time spent while the pause
// Gate is closed does not count towards the delay.
//
// TokenBucket caps the raw request rate of the HTTP client independently of
// the per-item delays.
package ratelimit
