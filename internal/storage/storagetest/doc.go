// Package storagetest provides a conformance suite for storage drivers and a
// fault-injecting driver wrapper to exercise rollback paths.
package storagetest
