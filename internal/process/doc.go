// Package process runs short lived helper subprocesses, such as sound
// players, under a context.
//
// Cancelling the context sends SIGINT to the process group and kills it
// if it does not exit within the graceful timeout:
//
//	args, _ := process.ParseCommand(`pw-play --media-role=Event "/usr/share/sounds/x.oga"`)
//	p := process.New("event-7", args, logger)
//	err := p.Run(ctx) // ctx.Err() if cancelled, *ExitError on failure
package process
