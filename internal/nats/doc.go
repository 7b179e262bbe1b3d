// Package nats carries the feedback protocol over an embedded NATS
// server.
//
// # Architecture
//
//   - Server: embedded NATS server running in the daemon
//   - Service: answers requests with the feedback manager and relays
//     bus events as broadcasts
//   - Client: used by pkg/feedback and the trigger command
//
// # Subjects
//
//	feedbackd.trigger           # TriggerRequest -> TriggerReply
//	feedbackd.end               # EndRequest -> EndReply
//	feedbackd.ended             # FeedbackEnded broadcast
//	feedbackd.profile.get       # ProfileRequest -> ProfileReply
//	feedbackd.profile.set       # ProfileRequest -> ProfileReply
//	feedbackd.profile.changed   # ProfileChanged broadcast
//
// Messages are JSON. Daemon errors come back in the "error" and "code"
// fields of the reply. Broadcasts carry every event id; subscribers
// filter for their own.
//
// # Debugging with nats CLI
//
// Watch all broadcasts:
//
//	nats -s nats://127.0.0.1:4223 sub "feedbackd.>"
//
// Trigger an event by hand:
//
//	nats -s nats://127.0.0.1:4223 req feedbackd.trigger '{"app_id":"org.example.Cli","event":"phone-incoming-call","hints":{},"timeout":5}'
//
// End it:
//
//	nats -s nats://127.0.0.1:4223 req feedbackd.end '{"id":1}'
package nats
