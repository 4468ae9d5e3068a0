package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/nbousseta/atelier/internal/notify"
	"github.com/nbousseta/atelier/internal/watch"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var (
		configPath string
		schedule   string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch workflows and notify on changes",
		Long: `Sweeps all actions on a cron schedule and notifies the configured channels
when an action becomes blocked or completed, or passes its due date. Runs
until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			var notifiers []notify.Notifier
			if cfg.Notify.Slack.BotToken != "" {
				sn, err := notify.NewSlack(notify.SlackOpts{
					BotToken:  cfg.Notify.Slack.BotToken,
					ChannelID: cfg.Notify.Slack.Channel,
				})
				if err != nil {
					return err
				}
				notifiers = append(notifiers, sn)
			}
			if cfg.Notify.Discord.BotToken != "" {
				dn, err := notify.NewDiscord(notify.DiscordOpts{
					BotToken:  cfg.Notify.Discord.BotToken,
					ChannelID: cfg.Notify.Discord.ChannelID,
				})
				if err != nil {
					return err
				}
				notifiers = append(notifiers, dn)
			}
			if len(notifiers) == 0 {
				return fmt.Errorf("no notifiers configured; set notify.slack or notify.discord in %s", configPath)
			}

			fanout := notify.NewFanout(notifiers...)
			defer fanout.Close()

			if schedule == "" {
				schedule = cfg.Watch.Schedule
			}
			sweeper, err := watch.NewSweeper(watch.SweeperOpts{
				DB:       gormDB,
				Schedule: schedule,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Watching on schedule %q with %d notifier(s)\n",
				schedule, len(notifiers))
			err = sweeper.Run(ctx, fanout)
			if err != nil && ctx.Err() != nil {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron schedule override (5-field)")
	return cmd
}
