package main

import (
	"net/url"
	"strconv"

	"github.com/ErlanBelekov/cronhost/internal/domain"
	"github.com/spf13/cobra"
)

func newRunCmd(newClient func() *APIClient) *cobra.Command {
	cmd := &cobra.Command{Use: "run", Short: "inspect job runs"}

	var (
		jobName    string
		failedOnly bool
		limit      int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE: func(c *cobra.Command, args []string) error {
			q := url.Values{}
			if jobName != "" {
				q.Set("job_name", jobName)
			}
			if failedOnly {
				q.Set("failed_only", "true")
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			var result struct {
				Runs []domain.Run `json:"runs"`
			}
			if err := newClient().get("/runs?"+q.Encode(), &result); err != nil {
				return err
			}
			return printJSON(result.Runs)
		},
	}
	list.Flags().StringVar(&jobName, "job-name", "", "filter by job name")
	list.Flags().BoolVar(&failedOnly, "failed-only", false, "only non-zero exit, timed-out or unfinished runs")
	list.Flags().IntVar(&limit, "limit", 0, "max runs to return")

	get := &cobra.Command{
		Use:   "get ID",
		Short: "show one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			var run domain.Run
			if err := newClient().get("/runs/"+args[0], &run); err != nil {
				return err
			}
			return printJSON(run)
		},
	}

	last := &cobra.Command{
		Use:   "last NAME",
		Short: "show the most recent run for a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			var run domain.Run
			if err := newClient().get("/jobs/"+url.PathEscape(args[0])+"/runs/last", &run); err != nil {
				return err
			}
			return printJSON(run)
		},
	}

	var olderThanDays int
	purge := &cobra.Command{
		Use:   "purge",
		Short: "delete runs that started before a retention window",
		RunE: func(c *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("older_than_days", strconv.Itoa(olderThanDays))
			var result struct {
				Purged int `json:"purged"`
			}
			if err := newClient().post("/runs/purge?"+q.Encode(), nil, &result); err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	purge.Flags().IntVar(&olderThanDays, "older-than-days", 30, "delete runs that started more than this many days ago")

	cmd.AddCommand(list, get, last, purge)
	return cmd
}
