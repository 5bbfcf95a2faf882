package main

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

func runCreateSubmission(c *apiClient, kind, name, message, file string, out io.Writer) error {
	if kind == "" {
		return fmt.Errorf("--type required")
	}
	var (
		data []byte
		err  error
	)
	if file != "" {
		data, err = c.upload(http.MethodPost, "/api/submissions", file, map[string]string{
			"type": kind, "name": name, "message": message,
		})
	} else {
		data, err = c.postJSON("/api/submissions", map[string]any{"type": kind, "name": name, "message": message})
	}
	if err != nil {
		return err
	}
	return printJSON(out, data)
}

func runSchedule(c *apiClient, id, scheduleType, at string, scheduled bool, out io.Writer) error {
	payload := map[string]any{"isScheduled": scheduled, "scheduleType": scheduleType}
	if at != "" {
		payload["scheduledFor"] = at
	}
	data, err := c.patchJSON("/api/submissions/"+id, payload)
	if err != nil {
		return err
	}
	return printJSON(out, data)
}

func init() {
	subCmd := &cobra.Command{Use: "submissions", Short: "Submission operations"}

	var kind, name, message, file string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a MESSAGE or FILE submission",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreateSubmission(newClient(apiFlag), kind, name, message, file, os.Stdout)
		},
	}
	createCmd.Flags().StringVarP(&kind, "type", "t", "", "Submission type, MESSAGE or FILE (required)")
	createCmd.Flags().StringVarP(&name, "name", "n", "", "Submission name")
	createCmd.Flags().StringVarP(&message, "message", "m", "", "Initial description for MESSAGE submissions")
	createCmd.Flags().StringVarP(&file, "file", "f", "", "File to upload for FILE submissions")
	subCmd.AddCommand(createCmd)

	subCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List submissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newClient(apiFlag).get("/api/submissions")
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, data)
		},
	})

	subCmd.AddCommand(&cobra.Command{
		Use:   "get SUBMISSION_ID",
		Short: "Get a submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newClient(apiFlag).get("/api/submissions/" + args[0])
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, data)
		},
	})

	subCmd.AddCommand(&cobra.Command{
		Use:   "remove SUBMISSION_ID",
		Short: "Delete a submission with its options and files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := newClient(apiFlag).delete("/api/submissions/" + args[0])
			return err
		},
	})

	subCmd.AddCommand(&cobra.Command{
		Use:   "duplicate SUBMISSION_ID",
		Short: "Copy a submission with fresh ids",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newClient(apiFlag).postJSON("/api/submissions/"+args[0]+"/duplicate", nil)
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, data)
		},
	})

	var scheduleType, at string
	var unschedule bool
	scheduleCmd := &cobra.Command{
		Use:   "schedule SUBMISSION_ID",
		Short: "Set or clear a submission schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := scheduleType
			if unschedule {
				st = "NONE"
			}
			return runSchedule(newClient(apiFlag), args[0], st, at, !unschedule, os.Stdout)
		},
	}
	scheduleCmd.Flags().StringVar(&scheduleType, "type", "SINGLE", "SINGLE or RECURRING")
	scheduleCmd.Flags().StringVar(&at, "at", "", "RFC3339 time for SINGLE, cron expression for RECURRING")
	scheduleCmd.Flags().BoolVar(&unschedule, "clear", false, "Clear the schedule")
	subCmd.AddCommand(scheduleCmd)

	var addFile string
	addFileCmd := &cobra.Command{
		Use:   "add-file SUBMISSION_ID",
		Short: "Append a file to a FILE submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newClient(apiFlag).upload(http.MethodPost, "/api/submissions/"+args[0]+"/files", addFile, nil)
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, data)
		},
	}
	addFileCmd.Flags().StringVarP(&addFile, "file", "f", "", "File to upload (required)")
	_ = addFileCmd.MarkFlagRequired("file")
	subCmd.AddCommand(addFileCmd)

	subCmd.AddCommand(&cobra.Command{
		Use:   "validate SUBMISSION_ID",
		Short: "Validate every destination option",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newClient(apiFlag).get("/api/submissions/" + args[0] + "/validate")
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, data)
		},
	})

	subCmd.AddCommand(&cobra.Command{
		Use:   "post SUBMISSION_ID",
		Short: "Post a submission to every destination option",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newClient(apiFlag).postJSON("/api/submissions/"+args[0]+"/post", nil)
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, data)
		},
	})

	rootCmd.AddCommand(subCmd)
}
