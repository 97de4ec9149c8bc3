package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/cppla/blogapi/auth"
	"github.com/cppla/blogapi/config"
	"github.com/cppla/blogapi/models"
	"github.com/cppla/blogapi/routes"
	"github.com/cppla/blogapi/utils"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  serve,
}

func init() {
	RootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if err := utils.InitLogger(cfg); err != nil {
		return err
	}
	defer utils.Logger.Sync() //nolint:errcheck

	db := config.InitDatabase(models.All()...)
	tokens := tokenService(cfg)
	r := routes.SetupRouter(db, tokens)

	go purgeExpiredTokens(tokens, time.Hour)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	return utils.NewServer(":"+cfg.AppPort, r).Run()
}

func tokenService(cfg config.AppConfig) *auth.Service {
	return auth.NewService(config.DB(), cfg.JWTSecret, time.Duration(cfg.TokenTTLHours)*time.Hour)
}

// purgeExpiredTokens deletes stale credentials so the token table stays small.
func purgeExpiredTokens(tokens *auth.Service, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for range ticker.C {
		n, err := tokens.PurgeExpired(context.Background())
		if err != nil {
			utils.Sugar.Warnw("purge expired tokens failed", "err", err)
			continue
		}
		if n > 0 {
			utils.Sugar.Infow("purged expired tokens", "count", n)
		}
	}
}
