package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// syncCmd runs one sync kind immediately and exits. Useful for cron
// driven setups and for priming a fresh database.
var syncCmd = &cobra.Command{
	Use:       "sync [catalog|epg|fcc]",
	Short:     "Run one sync immediately",
	Long:      "Run the named sync (catalog, epg, or fcc) once and exit.",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"catalog", "epg", "fcc"},
	RunE:      runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := newApplication(ctx, cfgFile)
	if err != nil {
		return err
	}
	defer app.Close()

	return app.scheduler.RunNow(ctx, args[0])
}
