package main

import (
	"os"

	"github.com/spf13/cobra"
)

func init() {
	settingsCmd := &cobra.Command{Use: "settings", Short: "Settings and startup options"}

	settingsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List settings profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newClient(apiFlag).get("/api/settings")
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, data)
		},
	})

	var port, dataPath string
	startupCmd := &cobra.Command{
		Use:   "startup",
		Short: "Show or change startup options (applied on next start)",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(apiFlag)
			if port == "" && dataPath == "" {
				data, err := c.get("/api/settings/startup")
				if err != nil {
					return err
				}
				return printJSON(os.Stdout, data)
			}
			data, err := c.patchJSON("/api/settings/startup", map[string]string{"port": port, "appDataPath": dataPath})
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, data)
		},
	}
	startupCmd.Flags().StringVar(&port, "port", "", "HTTP port, 1024-65535")
	startupCmd.Flags().StringVar(&dataPath, "data-path", "", "Application data directory")
	settingsCmd.AddCommand(startupCmd)

	rootCmd.AddCommand(settingsCmd)
}
