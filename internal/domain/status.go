package domain

import "time"

// PresenceStatus is derived from the age of a player's last heartbeat.
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusAway    PresenceStatus = "away"
	StatusOffline PresenceStatus = "offline"
)

const (
	OnlineWindow = 30 * time.Second
	AwayWindow   = 5 * time.Minute
)

// Presence derives the status of a player last seen at seen.
func Presence(seen, now time.Time) PresenceStatus {
	if seen.IsZero() {
		return StatusOffline
	}
	age := now.Sub(seen)
	switch {
	case age < OnlineWindow:
		return StatusOnline
	case age < AwayWindow:
		return StatusAway
	default:
		return StatusOffline
	}
}
