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
	flagUserUsername string
	flagUserEmail    string
	flagUserPassword string
	flagUserAdmin    bool
	flagUserTeamID   int64
)

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create a user account",
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

		req := &dataqe.UserRequest{
			Username: flagUserUsername,
			Email:    flagUserEmail,
			Password: flagUserPassword,
			IsAdmin:  flagUserAdmin,
		}
		if flagUserTeamID > 0 {
			req.TeamID = &flagUserTeamID
		}
		user, err := service.CreateUser(ctx, req)
		if err != nil {
			return err
		}
		fmt.Printf("Created user %q (id=%d, admin=%t)\n", user.Username, user.ID, user.IsAdmin)
		return nil
	},
}

func init() {
	createUserCmd.Flags().StringVar(&flagUserUsername, "username", "", "username for the new account")
	createUserCmd.Flags().StringVar(&flagUserEmail, "email", "", "email address")
	createUserCmd.Flags().StringVar(&flagUserPassword, "password", "", "password (min 8 characters)")
	createUserCmd.Flags().BoolVar(&flagUserAdmin, "admin", false, "grant admin privileges")
	createUserCmd.Flags().Int64Var(&flagUserTeamID, "team-id", 0, "team to assign the user to")
	createUserCmd.MarkFlagRequired("username")
	createUserCmd.MarkFlagRequired("email")
	createUserCmd.MarkFlagRequired("password")
}
