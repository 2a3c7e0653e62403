// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/srm999/DataQEsuite/dataqe"
)

var (
	flagAdminUsername string
	flagAdminEmail    string
	flagAdminPassword string
)

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the database schema and default users",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.require(); err != nil {
			return err
		}
		logger := newLogger(cfg.LogLevel)

		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		service, err := dataqe.NewService(pool, &dataqe.ServiceConfig{DataRoot: cfg.DataRoot}, logger)
		if err != nil {
			return err
		}
		defer service.Close()

		if _, err := service.EnsureSystemUser(ctx); err != nil {
			return err
		}
		if flagAdminUsername != "" {
			if flagAdminPassword == "" {
				return fmt.Errorf("--admin-password is required when --admin-username is set")
			}
			if _, err := service.EnsureAdminUser(ctx, flagAdminUsername, flagAdminEmail, flagAdminPassword); err != nil {
				return err
			}
			logger.Info("Admin user ensured", "username", flagAdminUsername)
		}
		logger.Info("Database initialized")
		return nil
	},
}

func init() {
	initDBCmd.Flags().StringVar(&flagAdminUsername, "admin-username", "", "create an admin user with this username")
	initDBCmd.Flags().StringVar(&flagAdminEmail, "admin-email", "", "email for the admin user")
	initDBCmd.Flags().StringVar(&flagAdminPassword, "admin-password", "", "password for the admin user")
}
