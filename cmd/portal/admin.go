package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clinicrpm/rpm-portal/internal/core/domain"
	"github.com/clinicrpm/rpm-portal/internal/core/ports"
	"github.com/clinicrpm/rpm-portal/internal/core/service"
	"github.com/clinicrpm/rpm-portal/internal/infrastructure/db/sqldb"
	"github.com/clinicrpm/rpm-portal/pkg/logger"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			db, err := openDatabase(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			log.Info().Str("driver", cfg.DB.Driver).Msg("schema is up to date")
			return nil
		},
	}
}

func newCreateAccountCmd() *cobra.Command {
	var in ports.AccountInput
	var role string

	cmd := &cobra.Command{
		Use:     "create-account",
		Short:   "Create a portal account, typically the first admin",
		Example: "  portal create-account --clinic \"Head Office\" --username admin --password s3cret! --role admin",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			db, err := openDatabase(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			in.Role = domain.Role(role)
			accounts := service.NewAccountService(sqldb.NewAccountRepository(db), nil, cfg.Session.BcryptCost, logger.Component("accounts"))
			a, err := accounts.Create(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("create account: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s account %q (id %d)\n", a.Role, a.Username, a.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.ClinicName, "clinic", "", "clinic display name")
	f.StringVar(&in.Username, "username", "", "login name")
	f.StringVar(&in.Password, "password", "", "initial password")
	f.StringVar(&role, "role", string(domain.RoleAdmin), "clinic or admin")
	_ = cmd.MarkFlagRequired("clinic")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
