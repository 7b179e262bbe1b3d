package feedback

import (
	"context"
	"log/slog"

	inats "github.com/smazurov/feedbackd/internal/nats"
)

// TriggerParams is what a trigger sends to the daemon.
type TriggerParams struct {
	AppID     string
	Event     string
	Profile   string
	Important bool
	SoundFile string
	Timeout   int32
	Sender    string
}

// Ended is one "feedback ended" notification.
type Ended struct {
	ID     uint32
	Reason EndReason
}

// Transport carries requests to the daemon. Notifications from
// SubscribeEnded must be delivered in order.
type Transport interface {
	Trigger(ctx context.Context, p TriggerParams) (uint32, error)
	End(ctx context.Context, id uint32) error
	Profile(ctx context.Context) (string, error)
	SetProfile(ctx context.Context, profile string) error
	SubscribeEnded(fn func(Ended)) (unsubscribe func(), err error)
	Close()
}

// natsTransport adapts the NATS client to Transport.
// It keeps sender announced to the daemon until Close.
type natsTransport struct {
	client   *inats.Client
	withdraw func()
}

func dialNATS(url, name, sender string, logger *slog.Logger) (*natsTransport, error) {
	client := inats.NewClient(url, logger)
	if err := client.Connect(name); err != nil {
		return nil, err
	}
	return &natsTransport{
		client:   client,
		withdraw: client.Announce(sender, inats.DefaultHeartbeatInterval),
	}, nil
}

func (t *natsTransport) Trigger(ctx context.Context, p TriggerParams) (uint32, error) {
	return t.client.Trigger(ctx, inats.TriggerRequest{
		AppID: p.AppID,
		Event: p.Event,
		Hints: inats.Hints{
			Profile:   p.Profile,
			Important: p.Important,
			SoundFile: p.SoundFile,
		},
		Timeout: p.Timeout,
		Sender:  p.Sender,
	})
}

func (t *natsTransport) End(ctx context.Context, id uint32) error {
	return t.client.End(ctx, id)
}

func (t *natsTransport) Profile(ctx context.Context) (string, error) {
	return t.client.Profile(ctx)
}

func (t *natsTransport) SetProfile(ctx context.Context, profile string) error {
	return t.client.SetProfile(ctx, profile)
}

func (t *natsTransport) SubscribeEnded(fn func(Ended)) (func(), error) {
	return t.client.SubscribeEnded(func(m inats.FeedbackEnded) {
		fn(Ended{ID: m.ID, Reason: m.Reason})
	})
}

func (t *natsTransport) Close() {
	t.withdraw()
	t.client.Close()
}
