package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cppla/blogapi/config"
	"github.com/cppla/blogapi/models"
	"github.com/cppla/blogapi/utils"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update database tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if err := utils.InitLogger(cfg); err != nil {
			return err
		}
		conn, err := config.OpenDatabase(cfg)
		if err != nil {
			return err
		}
		if err := config.Migrate(conn, models.All()...); err != nil {
			return err
		}
		utils.Sugar.Infow("migrations applied", "driver", cfg.DBDriver)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(migrateCmd)
}
