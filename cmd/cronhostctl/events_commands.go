package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ErlanBelekov/cronhost/internal/transport/http/middleware"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func newEventsCmd(newClient func() *APIClient) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "stream engine events until interrupted",
		RunE: func(c *cobra.Command, args []string) error {
			client := newClient()
			wsURL := toWebsocketURL(client.baseURL) + "/events"

			header := http.Header{}
			if client.secret != "" {
				token, err := middleware.IssueToken(client.secret, tokenTTL)
				if err != nil {
					return fmt.Errorf("mint token: %w", err)
				}
				header.Set("Authorization", "Bearer "+token)
			}

			conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
			if err != nil {
				if resp != nil {
					return fmt.Errorf("connect: %s", resp.Status)
				}
				return fmt.Errorf("connect: %w", err)
			}
			defer conn.Close()

			for {
				_, payload, err := conn.ReadMessage()
				if err != nil {
					return nil
				}
				fmt.Println(string(payload))
			}
		},
	}
}

func toWebsocketURL(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://")
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://")
	default:
		return baseURL
	}
}
