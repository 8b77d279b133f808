package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/appneural-ajith/ai-email-assistant/internal/ingest"
	"github.com/appneural-ajith/ai-email-assistant/internal/model"
	"github.com/appneural-ajith/ai-email-assistant/internal/reply"
	"github.com/appneural-ajith/ai-email-assistant/internal/schedule"
	"github.com/appneural-ajith/ai-email-assistant/internal/store"
	"github.com/appneural-ajith/ai-email-assistant/internal/ui"
	"github.com/appneural-ajith/ai-email-assistant/internal/view"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactively write the config file and store credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ui.RunSetup(cmd.Context(), a.cfg); err != nil {
				return err
			}
			if err := model.SaveConfig(a.configPath, a.cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config written to %s\n", a.configPath)
			return nil
		},
	}
}

func (a *app) ingester(cmd *cobra.Command, st store.Store) (*ingest.Ingester, error) {
	src, err := a.source(cmd.Context())
	if err != nil {
		return nil, err
	}
	return ingest.New(src, st, a.policy(), a.logger), nil
}

func newIngestCmd(a *app) *cobra.Command {
	var maxResults int

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch the latest messages from the source and store them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			in, err := a.ingester(cmd, st)
			if err != nil {
				return err
			}
			if maxResults <= 0 {
				maxResults = a.cfg.Source.MaxResults
			}

			report, err := in.Run(cmd.Context(), maxResults)
			if report != nil {
				fmt.Fprintln(cmd.OutOrStdout(), view.IngestReport(report))
			}
			return err
		},
	}

	cmd.Flags().IntVar(&maxResults, "max", 0, "maximum messages to fetch (default from config)")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Ingest repeatedly until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			in, err := a.ingester(cmd, st)
			if err != nil {
				return err
			}
			if interval <= 0 {
				interval = a.cfg.PollInterval()
			}

			out := cmd.OutOrStdout()
			p := ingest.NewPoller(in, interval, a.cfg.Source.MaxResults, a.logger)
			p.OnResult = func(r *ingest.Report, err error) {
				if r != nil {
					fmt.Fprintln(out, view.IngestReport(r))
				}
			}

			fmt.Fprintln(out, view.SourceBadge(a.cfg.Source.Type), "watching every", interval)
			if err := p.Run(cmd.Context()); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "poll interval (default from config)")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored messages, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			msgs, err := st.ListMessages(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), view.MessageList(msgs, a.location()))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of messages to show, 0 for all")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <message-id>",
		Short: "Show a stored message and any meeting it proposes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			msg, err := st.GetMessage(ctx, args[0])
			if err != nil {
				return err
			}
			atts, err := st.GetAttachments(ctx, msg.ID)
			if err != nil {
				return err
			}

			sched, err := a.scheduler(st, nil)
			if err != nil {
				return err
			}
			intent, err := sched.DetectIntent(ctx, msg.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, view.Message(msg, atts, a.location()))
			fmt.Fprintln(out, view.Intent(intent))
			return nil
		},
	}
}

func newThreadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "thread <thread-id>",
		Short: "Show every stored message of a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			msgs, err := st.GetThread(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), view.Thread(args[0], msgs, a.location()))
			return nil
		},
	}
}

func newScheduleCmd(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "schedule <message-id>",
		Short: "Create a calendar event for the meeting a message proposes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var sink schedule.CalendarSink
			if !dryRun {
				cal, err := a.calendarSink(ctx)
				if err != nil {
					return err
				}
				sink = cal
			}
			sched, err := a.scheduler(st, sink)
			if err != nil {
				return err
			}

			if dryRun {
				intent, err := sched.DetectIntent(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(out, view.Intent(intent))
				return nil
			}

			link, intent, err := sched.CreateEvent(ctx, args[0])
			if errors.Is(err, schedule.ErrNoIntent) {
				fmt.Fprintln(out, view.Intent(nil))
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(out, view.Intent(intent))
			fmt.Fprintln(out, "Event created:", link)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only show the detected meeting")
	return cmd
}

func newAnalyzeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <thread-id> [message-id]",
		Short: "Summarize a thread and infer the intent of one message",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			client, err := a.aiClient()
			if err != nil {
				return err
			}

			var messageID string
			if len(args) == 2 {
				messageID = args[1]
			}
			report, err := a.analyzer(st, client).Report(cmd.Context(), args[0], messageID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), view.Report(report))
			return nil
		},
	}
}

func newReplyCmd(a *app) *cobra.Command {
	var (
		autoSend  bool
		draftOnly bool
		noBooking bool
	)

	cmd := &cobra.Command{
		Use:   "reply <message-id>",
		Short: "Draft a reply, booking any proposed meeting, and send it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			client, err := a.aiClient()
			if err != nil {
				return err
			}

			cfg := reply.Config{
				Store:       st,
				Intents:     a.analyzer(st, client),
				Summarizer:  client,
				From:        a.cfg.Reply.From,
				SafeSenders: a.cfg.Reply.SafeSenders,
				Policy:      a.policy(),
				Logger:      a.logger,
			}

			if !noBooking {
				cal, err := a.calendarSink(ctx)
				if err != nil {
					a.logger.Warn("calendar unavailable, replying without booking", "error", err)
				} else {
					sched, err := a.scheduler(st, cal)
					if err != nil {
						return err
					}
					cfg.Booker = sched
				}
			}

			if draftOnly {
				draft, err := reply.New(cfg).Draft(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(out, view.Draft(draft))
				return nil
			}

			if cfg.Sender, err = a.sender(ctx); err != nil {
				return err
			}
			cfg.Confirmer = ui.Confirmer{Out: out}
			d := reply.New(cfg)

			ok, err := d.ShouldReply(ctx, args[0])
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(out, "No reply needed.")
				return nil
			}

			sent, draft, err := d.Send(ctx, args[0], autoSend)
			if err != nil {
				return err
			}
			if sent {
				fmt.Fprintf(out, "Reply sent to %s\n", draft.To)
			} else {
				fmt.Fprintln(out, "Reply not sent.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&autoSend, "auto-send", false, "send without asking when the sender is a safe sender")
	cmd.Flags().BoolVar(&draftOnly, "draft-only", false, "print the draft without sending")
	cmd.Flags().BoolVar(&noBooking, "no-booking", false, "do not create calendar events")
	return cmd
}
