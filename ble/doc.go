// Package ble adapts an asynchronous, callback-driven BLE central host
// stack into a synchronous, thread-safe API.
//
// The Host interface models the native GAP/GATT host: requests are submitted
// and results arrive later as events on a host-owned dispatch goroutine.
// Stack, Scanner and Client bridge those events back to blocking calls using
// single-use result channels and per-device event streams, so application
// code can scan, connect, discover services/characteristics/descriptors and
// exchange attribute data with plain function calls.
//
// The registry of per-peer connection state is guarded by a single lock owned
// by Stack. The lock is never held across a blocking channel receive; host
// callbacks acquire it only for short registry reads and writes.
package ble
