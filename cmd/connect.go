package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/marcus/possync/internal/db"
	"github.com/marcus/possync/internal/output"
	"github.com/marcus/possync/internal/posclient"
	"github.com/marcus/possync/internal/sync"
	"github.com/marcus/possync/internal/syncconfig"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var connectCmd = &cobra.Command{
	Use:     "connect",
	Short:   "Connect to a POS endpoint and save credentials",
	GroupID: "system",
	Long: `Verifies the POS endpoint, stores the access token, picks a default
location for order sync, and runs the one-time initial sync for the tenant
if it has not run yet.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("url")
		if url == "" {
			url = syncconfig.GetPOSURL()
		}
		tenant, _ := cmd.Flags().GetString("tenant")
		if tenant == "" {
			tenant = syncconfig.GetTenantID()
		}
		if tenant == "" {
			return fmt.Errorf("tenant required; pass --tenant")
		}

		token := os.Getenv("POSSYNC_TOKEN")
		if token == "" {
			fmt.Print("Access token: ")
			raw, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Println()
			if err != nil {
				return fmt.Errorf("read token: %w", err)
			}
			token = strings.TrimSpace(string(raw))
		}
		if token == "" {
			return fmt.Errorf("access token required")
		}

		pos := posclient.New(url, token)
		if _, err := pos.Ping(); err != nil {
			output.Error("POS endpoint unreachable: %v", err)
			return err
		}

		creds := &syncconfig.AuthCredentials{
			AccessToken: token,
			POSURL:      url,
		}
		if err := syncconfig.SaveAuth(creds); err != nil {
			output.Error("save credentials: %v", err)
			return err
		}

		cfg, err := syncconfig.LoadConfig()
		if err != nil {
			return err
		}
		cfg.Tenant = tenant
		cfg.POS.URL = url
		if err := syncconfig.SaveConfig(cfg); err != nil {
			return err
		}

		output.Success("Connected to %s", url)

		database, err := db.Open(getBaseDir())
		if err != nil {
			return err
		}
		defer database.Close()

		svc := sync.NewService(database, pos, newLogger())

		if err := pickDefaultLocation(cmd, database, pos, tenant); err != nil {
			output.Warning("no default location set: %v", err)
		}

		due, err := svc.ShouldPerformInitialSync(tenant)
		if err != nil {
			return err
		}
		if !due {
			output.Info("initial sync already done for tenant %s", tenant)
			return nil
		}

		output.Title("Running initial sync")
		res, err := svc.PerformInitialSync(tenant)
		if res != nil {
			for _, step := range res.Steps {
				if step.Err != nil {
					output.Error("  %s: %v", step.Name, step.Err)
					continue
				}
				if step.Result != nil {
					output.Info("  %s", step.Result.Summary())
					for _, w := range step.Result.Warnings {
						output.Warning("  %s", w)
					}
				}
			}
		}
		if err != nil {
			output.Error("initial sync: %v", err)
			return err
		}
		output.Success("Initial sync complete")
		return nil
	},
}

// pickDefaultLocation stores the location order sync will scope to. An
// explicit --location wins; otherwise the first active location does.
func pickDefaultLocation(cmd *cobra.Command, database *db.DB, pos *posclient.Client, tenant string) error {
	want, _ := cmd.Flags().GetString("location")

	locations, err := pos.ListLocations()
	if err != nil {
		return fmt.Errorf("list locations: %w", err)
	}
	if len(locations) == 0 {
		return fmt.Errorf("no locations available")
	}

	var chosen *posclient.Location
	for i := range locations {
		loc := &locations[i]
		if want != "" && (loc.ID == want || loc.Name == want) {
			chosen = loc
			break
		}
		if want == "" && chosen == nil && loc.Status == "ACTIVE" {
			chosen = loc
		}
	}
	if chosen == nil {
		if want != "" {
			return fmt.Errorf("location %q not found", want)
		}
		chosen = &locations[0]
	}

	if err := database.SetDefaultLocation(tenant, chosen.ID); err != nil {
		return err
	}
	output.Info("default location: %s (%s)", chosen.Name, chosen.ID)
	return nil
}

var disconnectCmd = &cobra.Command{
	Use:     "disconnect",
	Short:   "Remove saved POS credentials",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := syncconfig.ClearAuth(); err != nil {
			return err
		}
		output.Success("Disconnected")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(disconnectCmd)
	connectCmd.Flags().String("url", "", "POS endpoint URL")
	connectCmd.Flags().String("tenant", "", "Tenant ID")
	connectCmd.Flags().String("location", "", "Location ID or name for order sync")
}
