package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/alfredjeanlab/tripwire/internal/client"
	"github.com/alfredjeanlab/tripwire/internal/events"
	"github.com/alfredjeanlab/tripwire/internal/ui"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:     "watch [topic-pattern...]",
	Short:   "Follow gate lifecycle events as they happen",
	GroupID: "ops",
	Long: `Follow gate lifecycle events as they happen.

Topic patterns use NATS-style wildcards: "tripwire.gate.*" matches all gate
events, "tripwire.>" matches everything. With no arguments, all events are
shown.

Events arrive over NATS when a NATS URL is configured (TRIPWIRE_NATS_URL or
the active remote), otherwise over the server's SSE stream.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		topics := args

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		natsURL := os.Getenv("TRIPWIRE_NATS_URL")
		if natsURL == "" {
			natsURL = activeRemoteNATSURL()
		}
		if natsURL != "" {
			return watchNATS(ctx, natsURL, topics)
		}
		return watchSSE(ctx, topics)
	},
}

// watchNATS subscribes directly to the event bus.
func watchNATS(ctx context.Context, natsURL string, topics []string) error {
	sub, err := events.NewNATSSubscriber(natsURL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats: disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Printf("nats: reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()

	if len(topics) == 0 {
		topics = []string{"tripwire.>"}
	}

	type subscription struct {
		ch     <-chan []byte
		cancel func()
	}
	var subs []subscription
	for _, topic := range topics {
		ch, cancel, err := sub.Subscribe(topic)
		if err != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
		subs = append(subs, subscription{ch, cancel})
	}
	defer func() {
		for _, s := range subs {
			s.cancel()
		}
	}()

	merged := make(chan []byte, 64)
	for _, s := range subs {
		go func(ch <-chan []byte) {
			for raw := range ch {
				select {
				case merged <- raw:
				case <-ctx.Done():
					return
				}
			}
		}(s.ch)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case raw := <-merged:
			printStreamEvent("", raw)
		}
	}
}

// watchSSE follows the server's event stream.
func watchSSE(ctx context.Context, topics []string) error {
	return gatesClient.StreamEvents(ctx, topics, func(evt client.StreamEvent) {
		printStreamEvent(evt.Topic, evt.Data)
	})
}

func printStreamEvent(topic string, data []byte) {
	if jsonOutput {
		fmt.Println(string(data))
		return
	}

	ts := ui.RenderMuted(time.Now().Format("15:04:05"))
	if topic == "" {
		fmt.Printf("%s %s\n", ts, string(data))
		return
	}
	fmt.Printf("%s %s %s\n", ts, ui.RenderAccent(topic), string(data))
}
