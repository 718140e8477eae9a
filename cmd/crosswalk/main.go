package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/The-Politico/crosswalk/cmd/crosswalk/commands"
	"github.com/The-Politico/crosswalk/logger"
)

var rootCmd = &cobra.Command{
	Use:   "crosswalk",
	Short: "Crosswalk - entity resolution service",
	Long: `Crosswalk - a service for resolving records to canonical entities.

Crosswalk stores entities as schemaless attribute mappings grouped into
domains, matches incoming records against them exactly or fuzzily, and
maintains alias and supersession links between entities.

Available commands:
  server - Start the crosswalk HTTP API server
  db     - Manage the crosswalk database
  token  - Manage API user tokens
  domain - Manage entity domains

Examples:
  crosswalk server                  # Start the API server
  crosswalk db migrate              # Apply pending migrations
  crosswalk token create reporter   # Issue a token for a new API user
  crosswalk domain create "States"  # Create a domain`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Initialize(false); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(commands.ServerCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.TokenCmd)
	rootCmd.AddCommand(commands.DomainCmd)
}

func main() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
