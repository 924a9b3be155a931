package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"temple-services-backend/internal/app"
	"temple-services-backend/internal/authz"
	"temple-services-backend/internal/config"
	"temple-services-backend/internal/jobs"
	"temple-services-backend/internal/security"
)

var (
	recalcTemple  string
	recalcService string
	grantTemple   string
	grantSuper    bool
	tokenEmail    string
)

var recalcCmd = &cobra.Command{
	Use:   "recalc",
	Short: "Rebuild participant counters from registrations",
	Long: `Rebuild participant counters from registrations.

Without flags every service of every temple is reconciled.

Examples:
  templectl recalc
  templectl recalc --temple t1 --service s1`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if (recalcTemple == "") != (recalcService == "") {
			return fmt.Errorf("--temple and --service must be given together")
		}
		return withServices(cmd, func(ctx context.Context, cfg *config.Config, b *app.Backend, s *app.Services) error {
			if recalcService != "" {
				result, err := s.API.Registrations.RecalculateServiceParticipants(ctx, authz.System(), recalcService, recalcTemple)
				if err != nil {
					return err
				}
				return printJSON(cmd, result)
			}
			summary, err := jobs.NewJobRunner(b.Store, s.API.Registrations, cfg).RecalculateAll(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, summary)
		})
	},
}

var grantAdminCmd = &cobra.Command{
	Use:   "grant-admin USER_ID",
	Short: "Make a user a temple admin, or a super admin with --super",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !grantSuper && grantTemple == "" {
			return fmt.Errorf("--temple is required unless --super is set")
		}
		return withServices(cmd, func(ctx context.Context, cfg *config.Config, b *app.Backend, s *app.Services) error {
			if grantSuper {
				rec, err := s.API.Admin.GrantSuperAdmin(ctx, authz.System(), args[0])
				if err != nil {
					return err
				}
				if grantTemple == "" {
					return printJSON(cmd, rec)
				}
			}
			rec, err := s.API.Admin.AssignAdmin(ctx, authz.System(), args[0], grantTemple)
			if err != nil {
				return err
			}
			return printJSON(cmd, rec)
		})
	},
}

var revokeAdminCmd = &cobra.Command{
	Use:   "revoke-admin USER_ID",
	Short: "Remove a user's temple admin rights",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, cfg *config.Config, b *app.Backend, s *app.Services) error {
			if err := s.API.Admin.RevokeAdmin(ctx, authz.System(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoked admin rights of %s\n", args[0])
			return nil
		})
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token USER_ID",
	Short: "Issue a bearer token for the local auth provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Auth.Provider != config.AuthProviderLocal {
			return fmt.Errorf("tokens can only be issued for the %q auth provider", config.AuthProviderLocal)
		}
		token, err := security.NewTokenManager(cfg.Auth.JWTSecret, cfg.TokenExpiry()).GenerateAccessToken(args[0], tokenEmail)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending PostgreSQL migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Store.Backend != config.BackendPostgres {
			return fmt.Errorf("migrations apply to the %q backend only", config.BackendPostgres)
		}
		b, err := app.Open(cmd.Context(), cfg, true)
		if err != nil {
			return err
		}
		b.Close()
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}

func init() {
	recalcCmd.Flags().StringVar(&recalcTemple, "temple", "", "temple id")
	recalcCmd.Flags().StringVar(&recalcService, "service", "", "service id")
	grantAdminCmd.Flags().StringVar(&grantTemple, "temple", "", "temple the user administers")
	grantAdminCmd.Flags().BoolVar(&grantSuper, "super", false, "grant super admin rights")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email claim")
}
