package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	jwttoken "apeguard/internal/jwt_token"
	"apeguard/internal/platform/config"
	"apeguard/pkg/domain"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a caller token for local use",
	Long: `Mint a bearer token whose subject is the given caller identity, signed
with the configured server key.

Example:
  apeguard token --caller 0x5fbdb2315678afecb367f032d93f642f64180aa3
  apeguard token --caller 0x5fbd... --ttl 15m`,
	RunE: runToken,
}

var (
	tokenCaller string
	tokenTTL    time.Duration
)

func init() {
	tokenCmd.Flags().StringVar(&tokenCaller, "caller", "", "caller identity (0x-prefixed hex)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (default: server.token_ttl)")
	_ = tokenCmd.MarkFlagRequired("caller")
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	caller, err := domain.ParseAddress(tokenCaller)
	if err != nil {
		return fmt.Errorf("caller: %w", err)
	}
	ttl := tokenTTL
	if ttl <= 0 {
		ttl = cfg.Server.TokenTTL
	}
	token, err := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience).
		GenerateCallerToken(caller, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "caller %s, expires in %s\n", caller.Checksum(), ttl)
	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
}
