package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	accountsCmd := &cobra.Command{Use: "accounts", Short: "Account operations"}

	var name, website string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account on a registered website",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" || website == "" {
				return fmt.Errorf("--name and --website required")
			}
			data, err := newClient(apiFlag).postJSON("/api/accounts", map[string]any{"name": name, "website": website})
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, data)
		},
	}
	createCmd.Flags().StringVarP(&name, "name", "n", "", "Account name (required)")
	createCmd.Flags().StringVarP(&website, "website", "w", "", "Website name (required)")
	accountsCmd.AddCommand(createCmd)

	accountsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newClient(apiFlag).get("/api/accounts")
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, data)
		},
	})

	accountsCmd.AddCommand(&cobra.Command{
		Use:   "remove ACCOUNT_ID",
		Short: "Delete an account and its website options",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := newClient(apiFlag).delete("/api/accounts/" + args[0])
			return err
		},
	})

	// destinations are read-only, so they hang off accounts
	accountsCmd.AddCommand(&cobra.Command{
		Use:   "websites",
		Short: "List registered websites",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newClient(apiFlag).get("/api/websites")
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, data)
		},
	})

	rootCmd.AddCommand(accountsCmd)
}
