// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/srm999/DataQEsuite/dataqe"
)

var (
	flagTokenUsername string
	flagTokenTTL      time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a JWT for an existing user",
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

		user, err := service.GetUserByUsername(ctx, flagTokenUsername)
		if err != nil {
			return err
		}
		jwtAuth := dataqe.NewJWTAuth(cfg.JWTSecret)
		token, err := jwtAuth.GenerateToken(user, flagTokenTTL)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&flagTokenUsername, "username", "", "user to issue the token for")
	tokenCmd.Flags().DurationVar(&flagTokenTTL, "ttl", dataqe.TokenTTL, "token lifetime")
	tokenCmd.MarkFlagRequired("username")
}
