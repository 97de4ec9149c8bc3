package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cppla/blogapi/config"
	"github.com/cppla/blogapi/models"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage bearer tokens",
}

var tokenCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Issue a bearer token for an existing user",
	Args:  cobra.ExactArgs(1),
	RunE:  createToken,
}

func init() {
	tokenCmd.AddCommand(tokenCreateCmd)
	RootCmd.AddCommand(tokenCmd)
}

func createToken(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	db := config.InitDatabase(models.All()...)

	var user models.User
	if err := db.Where("username = ?", strings.TrimSpace(args[0])).First(&user).Error; err != nil {
		return fmt.Errorf("find user %q: %w", args[0], err)
	}
	token, err := tokenService(cfg).Issue(cmd.Context(), &user)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
