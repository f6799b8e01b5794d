package cli

import (
	"log"
	"time"

	"github.com/spf13/cobra"

	"practice-arena-service/internal/config"
)

// NewPickDailyCmd builds the CLI subcommand that assigns a question of the
// day to every student, for operators who need to rerun a missed schedule.
func NewPickDailyCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "pickdaily",
		Short: "Assign a question of the day to every student",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			svcs, err := buildServices(ctx, cfg)
			if err != nil {
				return err
			}
			defer svcs.cleanup()

			if err := svcs.selector.RunForAll(ctx, time.Now().UTC()); err != nil {
				return err
			}
			log.Println("daily question selection complete")
			return nil
		},
	}
}
