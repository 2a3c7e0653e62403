// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

// Package main provides the dataqe-server CLI: serve the HTTP API, prepare
// the database and manage users and tokens.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Optional .env for local development; a missing file is not an error.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
