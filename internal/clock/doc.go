// Package clock provides a per-instance, non-decreasing wall clock.
//
// # Monotonicity
//
// Timestamps handed out by a Clock never go backwards: if the system clock
// regresses, the clock pins to the last value it returned. Two calls may
// return the same instant, which is why ordering is carried by sequence ids
// and time is only informational.
//
// Usage
//
//	c := clock.New()
//	ts := c.Now()
package clock
