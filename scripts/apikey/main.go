// apikey issues API keys and resets monthly usage counters.
//
// Usage:
//
//	go run ./scripts/apikey create --name "Mobile app" --tier paid [--limit 10000] [--expires 2027-01-01]
//	go run ./scripts/apikey reset-usage
//
// reset-usage is meant to run from a scheduler on the first day of each month.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/sola-scriptura-chat-api/internal/logger"
	"github.com/sola-scriptura-chat-api/internal/models"
	"github.com/sola-scriptura-chat-api/internal/repository/postgres"
	"github.com/sola-scriptura-chat-api/internal/services"
	"github.com/sola-scriptura-chat-api/pkg/schema/config"
	"github.com/sola-scriptura-chat-api/pkg/schema/db"
	"github.com/spf13/cobra"
)

var (
	conn *sqlx.DB
	keys *services.APIKeyService

	keyName    string
	keyTier    string
	keyLimit   int
	keyExpires string
)

var rootCmd = &cobra.Command{
	Use:           "apikey",
	Short:         "Manage API keys",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		if err := config.LoadError(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		var err error
		conn, err = db.Open(cmd.Context(), config.GetConfig().PostgresURI)
		if err != nil {
			return err
		}
		keys = services.NewAPIKeyService(postgres.NewAPIKeyRepository(conn), logger.Nop())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if conn != nil {
			_ = conn.Close()
		}
	},
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Issue a new key and print it once",
	RunE:  runCreate,
}

var resetUsageCmd = &cobra.Command{
	Use:   "reset-usage",
	Short: "Zero current_usage on every key",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := keys.ResetMonthlyUsage(cmd.Context())
		if err != nil {
			return fmt.Errorf("reset usage: %w", err)
		}
		log.Printf("Reset monthly usage for %d keys", n)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&keyName, "name", "", "Display name for the key (required)")
	createCmd.Flags().StringVar(&keyTier, "tier", string(models.TierFree), "free, paid or premium")
	createCmd.Flags().IntVar(&keyLimit, "limit", 0, "Monthly request limit (defaults by tier)")
	createCmd.Flags().StringVar(&keyExpires, "expires", "", "Expiry date, YYYY-MM-DD")
	_ = createCmd.MarkFlagRequired("name")

	rootCmd.AddCommand(createCmd, resetUsageCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	tier, ok := models.ParseTier(keyTier)
	if !ok {
		return fmt.Errorf("unknown tier %q", keyTier)
	}

	params := services.CreateKeyParams{Name: keyName, Tier: tier, MonthlyLimit: keyLimit}
	if keyExpires != "" {
		at, err := time.Parse(time.DateOnly, keyExpires)
		if err != nil {
			return fmt.Errorf("invalid --expires: %w", err)
		}
		params.ExpiresAt = &at
	}

	plain, key, err := keys.Create(cmd.Context(), params)
	if err != nil {
		return fmt.Errorf("create key: %w", err)
	}

	log.Printf("Created key %d (%s, %s tier, %d requests/month)", key.ID, key.Name, key.Tier, key.MonthlyLimit)
	// Printed once; only the bcrypt hash is stored.
	fmt.Println(plain)
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
