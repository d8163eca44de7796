package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	backups "github.com/arthabank/artha/internal/pg-backups"
)

func backupCommands(_ *arthaInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "start artha database backup",
	}

	cmd.AddCommand(backupToCommands())
	cmd.AddCommand(backupToS3Commands())

	return cmd
}

func backupToCommands() *cobra.Command {
	cmd := &cobra.Command{
		Use: "drive",
		Run: func(cmd *cobra.Command, args []string) {
			if err := backups.BackupDB(); err != nil {
				logrus.Error(err)
				return
			}
		},
	}

	return cmd
}

func backupToS3Commands() *cobra.Command {
	cmd := &cobra.Command{
		Use: "s3",
		Run: func(cmd *cobra.Command, args []string) {
			if err := backups.ZipUploadToS3(); err != nil {
				logrus.Error(err)
				return
			}
		},
	}

	return cmd
}
