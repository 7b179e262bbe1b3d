// Package feedback is the client library for feedbackd.
//
// A process calls Init once, creates events and triggers them:
//
//	ctx, err := feedback.Init("org.example.App")
//	if err != nil {
//		return err
//	}
//	defer ctx.Uninit(context.Background())
//
//	ev := ctx.NewEvent("message-new-instant")
//	ev.OnEnded(func(ev *feedback.Event) {
//		log.Println("ended:", ev.EndReason())
//	})
//	err = ev.Trigger(context.Background())
//
// Events move from StateNone to StateRunning on a successful trigger and
// to StateEnded when the daemon reports the end. A failed trigger moves
// the event to StateErrored.
package feedback
