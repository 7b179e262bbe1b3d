// Package sound plays feedback sounds and tracks the in-flight playbacks.
//
// A Tracker owns at most one playback handle per *Feedback. Completion
// removes the handle before the caller's callback runs, so the callback
// may play the same feedback again.
package sound
