package main

import (
	"github.com/ErlanBelekov/cronhost/internal/engine"
	"github.com/spf13/cobra"
)

func newStatusCmd(newClient func() *APIClient) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "show engine status",
		RunE: func(c *cobra.Command, args []string) error {
			var status engine.Status
			if err := newClient().get("/status", &status); err != nil {
				return err
			}
			return printJSON(status)
		},
	}
}
