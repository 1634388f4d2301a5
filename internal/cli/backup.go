package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"divtrack/internal/backup"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up the databases to S3-compatible storage",
	}
	cmd.AddCommand(
		newBackupCreateCmd(),
		newBackupListCmd(),
		newBackupRotateCmd(),
	)
	return cmd
}

func backupService(app *app) (*backup.Service, error) {
	store, err := backup.NewS3Store(context.Background(), backup.StorageConfig{
		Endpoint:        app.cfg.Backup.Endpoint,
		Region:          app.cfg.Backup.Region,
		AccessKeyID:     app.cfg.Backup.AccessKeyID,
		SecretAccessKey: app.cfg.Backup.SecretAccessKey,
		Bucket:          app.cfg.Backup.Bucket,
	}, app.log)
	if err != nil {
		return nil, err
	}
	return backup.NewService(store, app.cfg.DataDir, app.bus, app.log), nil
}

func newBackupCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Archive the databases and upload the archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			// Flush the WAL so the file copy is complete.
			if err := app.db.WALCheckpoint("TRUNCATE"); err != nil {
				app.log.Warn().Err(err).Msg("WAL checkpoint failed, backup may miss recent writes")
			}

			svc, err := backupService(app)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			key, err := svc.CreateAndUpload(ctx)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(map[string]interface{}{
					"success": true,
					"archive": key,
				})
			}
			fmt.Printf("Uploaded %s\n", key)
			return nil
		},
	}
}

func newBackupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List remote backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			svc, err := backupService(app)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			backups, err := svc.ListBackups(ctx)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(map[string]interface{}{
					"success": true,
					"count":   len(backups),
					"backups": backups,
				})
			}

			rows := make([][]string, 0, len(backups))
			for _, b := range backups {
				rows = append(rows, []string{
					b.Filename,
					b.Timestamp.Format("2006-01-02 15:04"),
					fmt.Sprintf("%.1f MB", float64(b.SizeBytes)/1024/1024),
					fmt.Sprintf("%dh", b.AgeHours),
				})
			}
			renderTable([]string{"Archive", "Created", "Size", "Age"}, rows)
			return nil
		},
	}
}

func newBackupRotateCmd() *cobra.Command {
	var retentionDays int
	cmd := &cobra.Command{
		Use:   "rotate",
		Short: "Delete old remote backups, always keeping the newest three",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			svc, err := backupService(app)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			deleted, err := svc.RotateOldBackups(ctx, retentionDays)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(map[string]interface{}{
					"success": true,
					"deleted": deleted,
				})
			}
			fmt.Printf("Deleted %d old backups.\n", deleted)
			return nil
		},
	}
	cmd.Flags().IntVar(&retentionDays, "retention-days", 30, "delete backups older than this many days (0 keeps all)")
	return cmd
}
