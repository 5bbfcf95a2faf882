package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	watchersCmd := &cobra.Command{Use: "watchers", Short: "Directory watcher operations"}

	var path, action string
	var targets []string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Watch a directory for new files",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				return fmt.Errorf("--path required")
			}
			payload := map[string]any{"path": path, "importAction": action, "submissionIds": targets}
			data, err := newClient(apiFlag).postJSON("/api/directory-watchers", payload)
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, data)
		},
	}
	createCmd.Flags().StringVarP(&path, "path", "p", "", "Directory to watch (required)")
	createCmd.Flags().StringVar(&action, "action", "NEW_SUBMISSION", "NEW_SUBMISSION or ADD_TO_SUBMISSION")
	createCmd.Flags().StringSliceVar(&targets, "target", nil, "Target submission id for ADD_TO_SUBMISSION (repeatable)")
	watchersCmd.AddCommand(createCmd)

	watchersCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List directory watchers",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newClient(apiFlag).get("/api/directory-watchers")
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, data)
		},
	})

	watchersCmd.AddCommand(&cobra.Command{
		Use:   "remove WATCHER_ID",
		Short: "Delete a directory watcher",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := newClient(apiFlag).delete("/api/directory-watchers/" + args[0])
			return err
		},
	})

	rootCmd.AddCommand(watchersCmd)
}
