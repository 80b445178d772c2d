package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"walletverify/internal/platform/kafka/consumer"
	"walletverify/internal/wallet/events"
	"walletverify/internal/wallet/models"
)

var eventsCmd = &cli.Command{
	Name:  "events",
	Usage: "tail the wallet event topic",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{Name: "brokers", Required: true, EnvVars: []string{"KAFKA_BROKERS"}},
		&cli.StringFlag{Name: "topic", Value: "wallet.events", EnvVars: []string{"KAFKA_TOPIC"}},
		&cli.StringFlag{Name: "group", Value: "walletctl", Usage: "consumer group"},
		&cli.BoolFlag{Name: "from-start", Usage: "read from the earliest offset when the group has no commit"},
	},
	Action: func(c *cli.Context) error {
		ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, nil))
		raw := c.Bool("json")
		cons, err := consumer.New(consumer.Config{
			Brokers:   c.StringSlice("brokers"),
			GroupID:   c.String("group"),
			Topics:    []string{c.String("topic")},
			FromStart: c.Bool("from-start"),
		}, consumer.HandlerFunc(func(_ context.Context, msg *consumer.Message) error {
			return printEvent(c, msg, raw)
		}), logger)
		if err != nil {
			return err
		}
		return cons.Run(ctx)
	},
}

func printEvent(c *cli.Context, msg *consumer.Message, raw bool) error {
	if raw {
		return printRaw(c, msg.Value)
	}
	var event models.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		fmt.Fprintf(c.App.ErrWriter, "skipping undecodable record at offset %d: %v\n", msg.Offset, err)
		return nil
	}

	label := string(event.Type)
	switch event.Type {
	case models.EventWalletVerified:
		label = color.GreenString(label)
	case models.EventReconciliationMismatch:
		label = color.RedString(label)
	default:
		label = color.CyanString(label)
	}
	fmt.Fprintf(c.App.Writer, "%s %-32s %s request=%s\n",
		event.OccurredAt.Format("2006-01-02T15:04:05Z07:00"),
		label,
		event.Address,
		msg.Headers[events.HeaderRequestID],
	)
	return nil
}
