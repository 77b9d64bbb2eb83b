package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fasinfasi/Face-Lock-System/internal/config"
	"github.com/fasinfasi/Face-Lock-System/internal/database/postgres"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage enrolled users",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled users",
	RunE:  runUsersList,
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete <identity>",
	Short: "Delete an enrolled user and all their embeddings",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersDelete,
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersDeleteCmd)
}

// connectUserRepository opens the database for one-shot CLI commands.
func connectUserRepository() (*postgres.UserRepository, *postgres.Pool, error) {
	cfg := config.Load()
	if cfg.Database.URL == "" {
		return nil, nil, errors.New("DATABASE_URL environment variable is required")
	}
	pool, err := postgres.Connect(&cfg.Database, cfg.Extractor.Dim)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	return postgres.NewUserRepository(pool), pool, nil
}

func runUsersList(cmd *cobra.Command, args []string) error {
	repo, pool, err := connectUserRepository()
	if err != nil {
		return err
	}
	defer pool.Close()

	users, err := repo.ListUsers(context.Background())
	if err != nil {
		return fmt.Errorf("listing users: %w", err)
	}

	if len(users) == 0 {
		fmt.Println("No users enrolled")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "IDENTITY\tEMBEDDINGS\tREGISTERED")
	for i := range users {
		fmt.Fprintf(w, "%s\t%d\t%s\n",
			users[i].Identity,
			len(users[i].Embeddings),
			users[i].RegisteredAt.Format(time.RFC3339),
		)
	}
	return w.Flush()
}

func runUsersDelete(cmd *cobra.Command, args []string) error {
	repo, pool, err := connectUserRepository()
	if err != nil {
		return err
	}
	defer pool.Close()

	identity := args[0]
	deleted, err := repo.DeleteUser(context.Background(), identity)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if !deleted {
		return fmt.Errorf("user %q is not enrolled", identity)
	}

	fmt.Printf("Deleted user %q\n", identity)
	return nil
}
