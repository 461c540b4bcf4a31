package cli

import (
	"github.com/spf13/cobra"

	"quiz-delivery-service/internal/app"
)

// NewSyncRefsCmd rebuilds each question's quiz_ids from the quizzes that list it.
func NewSyncRefsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-refs",
		Short: "Rebuild question to quiz back-references",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			b, err := openBackend(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer b.Close()

			changed, err := app.NewQuizService(b.store, b.feeds, app.WithLogger(log)).SyncQuestionRefs(cmd.Context())
			if err != nil {
				return err
			}
			log.Info().Int("changed", changed).Msg("question references synced")
			return nil
		},
	}
}
