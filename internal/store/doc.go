// Package store holds the panel's current banner with pub/sub for live
// updates.
//
// The main components are:
//
//   - [Store]: Interface defining storage and subscription operations
//   - [MemoryStore]: In-memory implementation with bounded history
//   - [Banner]: Storage representation of a rendered banner
//
// Subscribers receive updates via channels with non-blocking sends (slow
// subscribers miss updates rather than block the poller).
package store
