// Package audit implements asynchronous delivery of access-decision and
// session lifecycle events.
//
// # Components
//
//   - [Sink] receives events: channel, JSON lines or no-op.
//   - [Dispatcher] relays them from a buffer, dropping or blocking when full.
//   - [Event] is one decision or lifecycle record.
//
// # What this package must NOT do
//
//   - Decide which events to emit; the Engine and Guard do that.
//   - Import goGuard or any sibling internal package.
package audit
