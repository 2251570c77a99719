// Package registry maps method names to registered handlers and composes
// independently built registries into one routing surface.
//
// A Registry owns a flat map of directly registered methods plus an ordered
// set of namespace prefixes, each holding child registries in registration
// order. Resolution is a deterministic pre-order walk: a direct match always
// wins, then prefixes are tried in the order they were first added, then
// children within a prefix in registration order, recursing on the method
// name with the matched prefix stripped.
//
// Registries are built during a setup phase and treated as read-only while
// requests are in flight; concurrent reads need no locking, but registration
// must not race with dispatch.
package registry
