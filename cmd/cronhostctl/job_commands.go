package main

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/ErlanBelekov/cronhost/internal/domain"
	"github.com/spf13/cobra"
)

func newJobCmd(newClient func() *APIClient) *cobra.Command {
	cmd := &cobra.Command{Use: "job", Short: "manage jobs"}

	var (
		cron, command, workingDir string
		timeoutSeconds            int
		tags                      []string
		disabled                  bool
	)
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "register a new job",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			enabled := !disabled
			body := map[string]any{
				"name":            args[0],
				"cron":            cron,
				"command":         command,
				"working_dir":     workingDir,
				"timeout_seconds": timeoutSeconds,
				"tags":            tags,
				"enabled":         enabled,
			}
			var job domain.Job
			if err := newClient().post("/jobs", body, &job); err != nil {
				return err
			}
			return printJSON(job)
		},
	}
	add.Flags().StringVar(&cron, "cron", "", "cron expression")
	add.Flags().StringVar(&command, "command", "", "shell command")
	add.Flags().StringVar(&workingDir, "working-dir", "", "working directory")
	add.Flags().IntVar(&timeoutSeconds, "timeout", 0, "timeout in seconds (0 = default)")
	add.Flags().StringSliceVar(&tags, "tag", nil, "tag (repeatable)")
	add.Flags().BoolVar(&disabled, "disabled", false, "add the job disabled")
	_ = add.MarkFlagRequired("cron")
	_ = add.MarkFlagRequired("command")

	var listTag string
	var listEnabled string
	list := &cobra.Command{
		Use:   "list",
		Short: "list jobs",
		RunE: func(c *cobra.Command, args []string) error {
			q := url.Values{}
			if listTag != "" {
				q.Set("tag", listTag)
			}
			if listEnabled != "" {
				q.Set("enabled", listEnabled)
			}
			var result struct {
				Jobs []domain.Job `json:"jobs"`
			}
			if err := newClient().get("/jobs?"+q.Encode(), &result); err != nil {
				return err
			}
			return printJSON(result.Jobs)
		},
	}
	list.Flags().StringVar(&listTag, "tag", "", "filter by tag")
	list.Flags().StringVar(&listEnabled, "enabled", "", "filter by enabled (true/false)")

	get := &cobra.Command{
		Use:   "get NAME",
		Short: "show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			var job domain.Job
			if err := newClient().get("/jobs/"+url.PathEscape(args[0]), &job); err != nil {
				return err
			}
			return printJSON(job)
		},
	}

	var purgeRuns bool
	del := &cobra.Command{
		Use:   "delete NAME",
		Short: "delete a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			path := "/jobs/" + url.PathEscape(args[0])
			if purgeRuns {
				path += "?purge_runs=true"
			}
			return newClient().delete(path)
		},
	}
	del.Flags().BoolVar(&purgeRuns, "purge-runs", false, "also delete the job's run history")

	var (
		updateCron, updateCommand, updateWorkingDir string
		updateTimeout                               int
		updateTags                                  []string
	)
	update := &cobra.Command{
		Use:   "update NAME",
		Short: "change a job's fields; flags left unset are untouched",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			body := map[string]any{}
			if c.Flags().Changed("cron") {
				body["cron"] = updateCron
			}
			if c.Flags().Changed("command") {
				body["command"] = updateCommand
			}
			if c.Flags().Changed("working-dir") {
				body["working_dir"] = updateWorkingDir
			}
			if c.Flags().Changed("timeout") {
				body["timeout_seconds"] = updateTimeout
			}
			if c.Flags().Changed("tag") {
				body["tags"] = updateTags
			}
			var job domain.Job
			if err := newClient().patch("/jobs/"+url.PathEscape(args[0]), body, &job); err != nil {
				return err
			}
			return printJSON(job)
		},
	}
	update.Flags().StringVar(&updateCron, "cron", "", "new cron expression")
	update.Flags().StringVar(&updateCommand, "command", "", "new shell command")
	update.Flags().StringVar(&updateWorkingDir, "working-dir", "", "new working directory")
	update.Flags().IntVar(&updateTimeout, "timeout", 0, "new timeout in seconds")
	update.Flags().StringSliceVar(&updateTags, "tag", nil, "new tag (repeatable, replaces all tags)")

	enable := &cobra.Command{
		Use:   "enable NAME",
		Short: "enable a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			var job domain.Job
			if err := newClient().post("/jobs/"+url.PathEscape(args[0])+"/enable", nil, &job); err != nil {
				return err
			}
			return printJSON(job)
		},
	}

	disable := &cobra.Command{
		Use:   "disable NAME",
		Short: "disable a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			var job domain.Job
			if err := newClient().post("/jobs/"+url.PathEscape(args[0])+"/disable", nil, &job); err != nil {
				return err
			}
			return printJSON(job)
		},
	}

	trigger := &cobra.Command{
		Use:   "trigger NAME",
		Short: "run a job immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			var run domain.Run
			if err := newClient().post("/jobs/"+url.PathEscape(args[0])+"/trigger", nil, &run); err != nil {
				return err
			}
			return printJSON(run)
		},
	}

	validateCron := &cobra.Command{
		Use:   "validate-cron EXPR",
		Short: "check a cron expression without registering a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			var result struct {
				Valid bool   `json:"valid"`
				Error string `json:"error"`
			}
			if err := newClient().post("/jobs/validate-cron", map[string]string{"cron": args[0]}, &result); err != nil {
				return err
			}
			if !result.Valid {
				return fmt.Errorf("invalid cron expression: %s", result.Error)
			}
			fmt.Println("valid")
			return nil
		},
	}

	tagsCmd := &cobra.Command{
		Use:   "tags",
		Short: "list every tag in use",
		RunE: func(c *cobra.Command, args []string) error {
			var result struct {
				Tags []string `json:"tags"`
			}
			if err := newClient().get("/jobs/tags", &result); err != nil {
				return err
			}
			return printJSON(result.Tags)
		},
	}

	cmd.AddCommand(add, list, get, update, del, enable, disable, trigger, validateCron, tagsCmd)
	return cmd
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
