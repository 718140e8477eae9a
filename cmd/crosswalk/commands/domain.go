package commands

import (
	"context"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/The-Politico/crosswalk/storage"
)

// DomainCmd manages entity domains
var DomainCmd = &cobra.Command{
	Use:   "domain",
	Short: "Manage entity domains",
	Long: `domain — Manage crosswalk entity domains

Examples:
  crosswalk domain create "State Lawmakers"                 # Create a domain
  crosswalk domain create "2018 Session" --parent lawmakers # Create a child domain
  crosswalk domain ls                                       # List domains`,
}

var domainCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a domain",
	Args:  cobra.ExactArgs(1),
	RunE:  runDomainCreate,
}

var domainLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List domains with entity counts",
	RunE:  runDomainLs,
}

var domainParentFlag string

func init() {
	domainCreateCmd.Flags().StringVar(&domainParentFlag, "parent", "", "Parent domain slug")
	DomainCmd.AddCommand(domainCreateCmd)
	DomainCmd.AddCommand(domainLsCmd)
}

func runDomainCreate(cmd *cobra.Command, args []string) error {
	database, err := openDatabase(dbPathFlag)
	if err != nil {
		return err
	}
	defer database.Close()

	var parent *string
	if domainParentFlag != "" {
		parent = &domainParentFlag
	}

	d, err := storage.NewDomainStore(database, nil).Create(context.Background(), args[0], parent, nil)
	if err != nil {
		return err
	}

	pterm.Success.Printf("Created domain %s (slug: %s)\n", d.Name, d.Slug)
	return nil
}

func runDomainLs(cmd *cobra.Command, args []string) error {
	database, err := openDatabase(dbPathFlag)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	domains, err := storage.NewDomainStore(database, nil).List(ctx)
	if err != nil {
		return err
	}
	if len(domains) == 0 {
		pterm.Info.Println("No domains")
		return nil
	}

	entities := storage.NewEntityStore(database, nil)
	rows := pterm.TableData{{"Slug", "Name", "Parent", "Entities"}}
	for _, d := range domains {
		parent := ""
		if d.Parent != nil {
			parent = *d.Parent
		}
		count, err := entities.CountByDomain(ctx, d.Slug)
		if err != nil {
			return err
		}
		rows = append(rows, []string{d.Slug, d.Name, parent, strconv.Itoa(count)})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}
