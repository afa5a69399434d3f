package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/familyhub/internal/backup"
	"github.com/dukerupert/familyhub/internal/config"
	"github.com/dukerupert/familyhub/internal/docstore"
	"github.com/dukerupert/familyhub/internal/seed"
)

func init() {
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Write default settings, chores and rewards where missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, logger, closeFn, err := openHub(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			return runSeed(cmd.Context(), store, logger)
		},
	}
	rootCmd.AddCommand(seedCmd)

	var passphrase string
	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Upload an encrypted backup to S3",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, logger, closeFn, err := openHub(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			record, err := newBackupManager(cfg, store, logger).RunNow(cmd.Context(), passphrase)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "uploaded %s (%d documents, %d bytes)\n", record.S3Key, record.Documents, record.SizeBytes)
			return nil
		},
	}
	backupCmd.Flags().StringVarP(&passphrase, "passphrase", "p", "", "Encryption passphrase (required)")
	_ = backupCmd.MarkFlagRequired("passphrase")
	rootCmd.AddCommand(backupCmd)

	backupsCmd := &cobra.Command{
		Use:   "backups",
		Short: "List backup records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, logger, closeFn, err := openHub(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			records, err := newBackupManager(cfg, store, logger).Backups(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CREATED\tSTATUS\tDOCS\tKEY")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.CreatedAt.Format(time.RFC3339), r.Status, r.Documents, r.S3Key)
			}
			return tw.Flush()
		},
	}
	rootCmd.AddCommand(backupsCmd)

	var restorePassphrase string
	restoreCmd := &cobra.Command{
		Use:   "restore S3_KEY",
		Short: "Replace the hub's data with an uploaded backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, logger, closeFn, err := openHub(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			n, err := newBackupManager(cfg, store, logger).Restore(cmd.Context(), args[0], restorePassphrase)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "restored %d documents\n", n)
			return nil
		},
	}
	restoreCmd.Flags().StringVarP(&restorePassphrase, "passphrase", "p", "", "Encryption passphrase (required)")
	_ = restoreCmd.MarkFlagRequired("passphrase")
	rootCmd.AddCommand(restoreCmd)

	var outFile string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the hub's data as an unencrypted JSON archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, _, closeFn, err := openHub(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			w := io.Writer(os.Stdout)
			if outFile != "" && outFile != "-" {
				f, err := os.Create(outFile)
				if err != nil {
					return fmt.Errorf("create %s: %w", outFile, err)
				}
				defer f.Close()
				w = f
			}
			return exportArchive(cmd.Context(), store, w, time.Now())
		},
	}
	exportCmd.Flags().StringVarP(&outFile, "out", "o", "-", "Output file")
	rootCmd.AddCommand(exportCmd)

	importCmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the hub's data with a JSON archive written by export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, _, closeFn, err := openHub(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			n, err := importArchive(cmd.Context(), store, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "imported %d documents\n", n)
			return nil
		},
	}
	rootCmd.AddCommand(importCmd)
}

func newBackupManager(cfg *config.Config, store docstore.Store, logger *slog.Logger) *backup.Manager {
	return backup.NewManager(backup.S3Config{
		Endpoint:  cfg.S3.Endpoint,
		Bucket:    cfg.S3.Bucket,
		Region:    cfg.S3.Region,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
	}, store, nil, logger)
}

func runSeed(ctx context.Context, store docstore.Store, logger *slog.Logger) error {
	s := seed.New(store, logger)
	return errors.Join(
		s.EnsureSettings(ctx),
		s.SeedChores(ctx),
		s.SeedRewards(ctx),
	)
}

func exportArchive(ctx context.Context, store docstore.Store, w io.Writer, now time.Time) error {
	archive, err := backup.Export(ctx, store, now)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(archive)
}

func importArchive(ctx context.Context, store docstore.Store, r io.Reader) (int, error) {
	var archive backup.Archive
	if err := json.NewDecoder(r).Decode(&archive); err != nil {
		return 0, fmt.Errorf("%w: %v", backup.ErrInvalidArchive, err)
	}
	return backup.Import(ctx, store, &archive)
}
