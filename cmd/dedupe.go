package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/kolscout/internal/app"
	"github.com/JakeFAU/kolscout/internal/clock/system"
	"github.com/JakeFAU/kolscout/internal/id/uuid"
	"github.com/JakeFAU/kolscout/internal/scout"
)

func newDedupeCmd() *cobra.Command {
	var (
		scopeFlag string
		dryRun    bool
	)
	cmd := &cobra.Command{
		Use:   "dedupe",
		Short: "Removes repeated campaign candidates",
		Long: `Deletes candidates whose username already appears earlier, either within
the same campaign (scope=campaign) or anywhere (scope=global). The oldest record
of each creator is kept.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}
			raw := scopeFlag
			if raw == "" {
				raw = rt.cfg.Dedupe.Scope
			}
			scope, ok := scout.ParseDedupeScope(raw)
			if !ok {
				return fmt.Errorf("unknown dedupe scope %q", raw)
			}

			store, _, err := app.OpenStore(cmd.Context(), rt.cfg, rt.logger)
			if err != nil {
				return err
			}
			defer store.Close()

			roster := scout.NewRoster(store, store, store, uuid.New(), system.New(), rt.logger)
			res, err := roster.Dedupe(cmd.Context(), scope, dryRun)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return fmt.Errorf("write result: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&scopeFlag, "scope", "", "campaign or global (default from dedupe.scope)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report duplicates without deleting them")
	return cmd
}
