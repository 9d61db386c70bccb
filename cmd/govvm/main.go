// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/luxfi/govvm"
	"github.com/luxfi/govvm/cmd/govvm/client"
	"github.com/luxfi/govvm/cmd/govvm/run"
)

func init() {
	cobra.EnablePrefixMatching = true
}

func main() {
	cmd := &cobra.Command{
		Use:     govvm.Name,
		Short:   "Confidential proposal and tally engine",
		Version: govvm.Version,
	}
	cmd.AddCommand(run.Command())
	cmd.AddCommand(client.Commands()...)

	ctx := context.Background()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "command failed %v\n", err)
		os.Exit(1)
	}
}
