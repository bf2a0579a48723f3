// Package safecall provides lifetime-safe callback wrappers for Go.
// An owner embeds a Registry and hands out wrapper handles bound to it;
// once the Registry is closed, every outstanding handle degrades to a
// no-op returning a configured default instead of touching owner state.
package safecall
