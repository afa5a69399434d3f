package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dukerupert/familyhub/internal/bootstrap"
	"github.com/dukerupert/familyhub/internal/config"
	"github.com/dukerupert/familyhub/internal/push"
)

func init() {
	hubIDCmd := &cobra.Command{
		Use:   "hub-id",
		Short: "Print the hub identifier, generating it on first use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			id, err := bootstrap.HubID(cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, id)
			return nil
		},
	}
	rootCmd.AddCommand(hubIDCmd)

	vapidCmd := &cobra.Command{
		Use:   "vapid-keys",
		Short: "Generate a VAPID key pair for web push",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, priv, err := push.GenerateVAPIDKeys()
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "FAMILYHUB_VAPID_PUBLIC_KEY=%s\nFAMILYHUB_VAPID_PRIVATE_KEY=%s\n", pub, priv)
			return nil
		},
	}
	rootCmd.AddCommand(vapidCmd)
}
