package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dukerupert/familyhub/internal/docstore"
	"github.com/dukerupert/familyhub/internal/logging"
	"github.com/dukerupert/familyhub/internal/model"
	"github.com/dukerupert/familyhub/internal/state"
)

func init() {
	profilesCmd := &cobra.Command{Use: "profiles", Short: "Profile operations"}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, _, closeFn, err := openHub(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			return listProfiles(cmd.Context(), store, os.Stdout)
		},
	}
	profilesCmd.AddCommand(listCmd)

	resetCmd := &cobra.Command{
		Use:   "reset-pin PROFILE_ID",
		Short: "Remove a profile's PIN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, _, closeFn, err := openHub(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			if err := resetPIN(cmd.Context(), store, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "PIN cleared for %s\n", args[0])
			return nil
		},
	}
	profilesCmd.AddCommand(resetCmd)

	rootCmd.AddCommand(profilesCmd)
}

func listProfiles(ctx context.Context, store docstore.Store, w io.Writer) error {
	docs, err := store.List(ctx, docstore.Users)
	if err != nil {
		return fmt.Errorf("list profiles: %w", err)
	}
	profiles := make([]model.Profile, 0, len(docs))
	for _, d := range docs {
		var p model.Profile
		if err := docstore.Decode(d, &p); err != nil {
			return fmt.Errorf("decode profile %s: %w", d.ID, err)
		}
		profiles = append(profiles, p)
	}
	slices.SortFunc(profiles, func(a, b model.Profile) int {
		return strings.Compare(a.Name, b.Name)
	})

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tROLE\tPOINTS\tPIN")
	for _, p := range profiles {
		pin := "no"
		if p.HasPIN() {
			pin = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", p.ID, p.Name, p.Role, p.Points, pin)
	}
	return tw.Flush()
}

func resetPIN(ctx context.Context, store docstore.Store, id string) error {
	app := state.New(store, logging.Discard())
	if err := app.ResetPIN(ctx, id); err != nil {
		return fmt.Errorf("reset pin: %w", err)
	}
	return nil
}
