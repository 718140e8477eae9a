package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/The-Politico/crosswalk/config"
	"github.com/The-Politico/crosswalk/errors"
	"github.com/The-Politico/crosswalk/storage"
)

// DbCmd represents the db (database) command
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the crosswalk database",
	Long: `db — Manage crosswalk database operations

Examples:
  crosswalk db migrate   # Apply pending schema migrations
  crosswalk db stats     # Show entity and domain counts`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE:  runDbMigrate,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	RunE:  runDbStats,
}

var dbPathFlag string

func init() {
	DbCmd.PersistentFlags().StringVar(&dbPathFlag, "db-path", "", "Custom database path (overrides config)")
	DbCmd.AddCommand(dbMigrateCmd)
	DbCmd.AddCommand(dbStatsCmd)
}

func runDbMigrate(cmd *cobra.Command, args []string) error {
	// openDatabase migrates as part of opening
	database, err := openDatabase(dbPathFlag)
	if err != nil {
		return err
	}
	defer database.Close()

	fmt.Println("Database is up to date")
	return nil
}

func runDbStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	database, err := openDatabase(dbPathFlag)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	entities := storage.NewEntityStore(database, nil)
	domainStore := storage.NewDomainStore(database, nil)

	total, err := entities.Count(ctx)
	if err != nil {
		return err
	}
	domains, err := domainStore.List(ctx)
	if err != nil {
		return err
	}

	path := cfg.Database.Path
	if dbPathFlag != "" {
		path = dbPathFlag
	}

	fmt.Println("Database Statistics")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()
	fmt.Printf("Database Path:  %s\n", path)
	fmt.Printf("Domains:        %d\n", len(domains))
	fmt.Printf("Total Entities: %d\n", total)
	fmt.Println()

	for _, d := range domains {
		count, err := entities.CountByDomain(ctx, d.Slug)
		if err != nil {
			return err
		}
		fmt.Printf("  %-30s %d\n", d.Slug, count)
	}
	return nil
}
