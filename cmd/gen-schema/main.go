// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyward Contributors

// Command gen-schema writes the JSON Schema for keyward config files.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/keyward/keyward/internal/config"
)

func main() {
	outPath := pflag.StringP("out", "o", filepath.Join("schemas", "config.schema.json"), "output file")
	pflag.Parse()

	if err := write(*outPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated %s\n", *outPath)
}

func write(outPath string) error {
	schema, err := config.GenerateSchema()
	if err != nil {
		return fmt.Errorf("generating schema: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(outPath, append(schema, '\n'), 0o600); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
