package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/videoconf/internal/app"
	"github.com/vovakirdan/videoconf/internal/auth"
)

var tokenCMD = &cobra.Command{
	Use:   "token USER_ID",
	Short: "mint a bearer token for a user",
	Long:  `token prints a signed API token for USER_ID. Useful for local testing; production tokens come from the chat product.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := initialize(cmd)
		if err != nil {
			return err
		}
		if cfg.Auth.JWTSecret == "" {
			return fmt.Errorf("auth.jwt_secret is not configured")
		}

		jwtCfg := app.JWTConfig(cfg.Auth)
		if ttl, _ := cmd.Flags().GetDuration("ttl"); ttl > 0 {
			jwtCfg.TTL = ttl
		}
		username, _ := cmd.Flags().GetString("username")

		token, err := auth.GenerateToken(jwtCfg, args[0], username)
		if err != nil {
			return fmt.Errorf("generate token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCMD.Flags().String("username", "", "username claim")
	tokenCMD.Flags().Duration("ttl", time.Duration(0), "token lifetime (default from config)")
	rootCMD.AddCommand(tokenCMD)
}
