// Package notification turns raw game notifications into typed extraction events.
//
// Notification details arrive as YAML text. Times inside the details (readyTime, autoTime) are
// LDAP timestamps: 100ns ticks since 1601-01-01 UTC. Ore volume maps are keyed by ore type id,
// written as integers or strings depending on the source.
package notification
