package commands

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/The-Politico/crosswalk/storage"
)

// TokenCmd manages API user tokens
var TokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage API user tokens",
	Long: `token — Manage crosswalk API users and their tokens

Every API request authenticates with "Authorization: Token <token>".

Examples:
  crosswalk token create reporter   # Issue a token for user "reporter"
  crosswalk token ls                # List API users and tokens`,
}

var tokenCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Create an API user and issue a token",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenCreate,
}

var tokenLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List API users and their tokens",
	RunE:  runTokenLs,
}

func init() {
	TokenCmd.AddCommand(tokenCreateCmd)
	TokenCmd.AddCommand(tokenLsCmd)
}

func runTokenCreate(cmd *cobra.Command, args []string) error {
	database, err := openDatabase(dbPathFlag)
	if err != nil {
		return err
	}
	defer database.Close()

	user, err := storage.NewUserStore(database).Create(context.Background(), args[0])
	if err != nil {
		return err
	}

	pterm.Success.Printf("Created API user %s\n", user.Username)
	pterm.Printf("Token: %s\n", user.Token)
	return nil
}

func runTokenLs(cmd *cobra.Command, args []string) error {
	database, err := openDatabase(dbPathFlag)
	if err != nil {
		return err
	}
	defer database.Close()

	users, err := storage.NewUserStore(database).List(context.Background())
	if err != nil {
		return err
	}
	if len(users) == 0 {
		pterm.Info.Println("No API users")
		return nil
	}

	rows := pterm.TableData{{"Username", "Token", "Created"}}
	for _, u := range users {
		rows = append(rows, []string{u.Username, u.Token, u.Created.Format("2006-01-02 15:04")})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}
