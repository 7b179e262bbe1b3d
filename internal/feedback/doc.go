// Package feedback turns triggered events into running feedbacks.
//
// The Manager looks an event up in the Theme for every profile at or
// below the effective level, starts the available sound and LED
// feedbacks, and publishes FeedbackEndedEvent on the bus once all of
// them have stopped. Levels combine the global profile, the per-app
// profile and the trigger hint; the lowest wins unless the app may send
// important events.
package feedback
