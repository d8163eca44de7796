package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/arthabank/artha"
	"github.com/arthabank/artha/config"
	"github.com/arthabank/artha/database"
	"github.com/arthabank/artha/internal/notification"
)

// Artha is the CLI application wrapping the root cobra command.
type Artha struct {
	cmd *cobra.Command
}

// arthaInstance holds the engine instance and its configuration for use by
// the subcommands.
type arthaInstance struct {
	artha *artha.Artha
	cnf   *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

func preRun(app *arthaInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("artha.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newArtha, err := setupArtha(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.artha = newArtha
		app.cnf = cnf

		return nil
	}
}

func setupArtha(cfg *config.Configuration) (*artha.Artha, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	newArtha, err := artha.NewArtha(db)
	if err != nil {
		return nil, fmt.Errorf("error creating artha: %v", err)
	}
	return newArtha, nil
}

// NewCLI assembles the root command and its subcommands.
func NewCLI() *Artha {
	var configFile string
	a := &arthaInstance{}

	var rootCmd = &cobra.Command{
		Use:   "artha",
		Short: "Ledger and credit-instrument engine",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./artha.json", "Configuration file for the engine")

	rootCmd.PersistentPreRunE = preRun(a)

	rootCmd.AddCommand(serverCommands(a))
	rootCmd.AddCommand(workerCommands(a))
	rootCmd.AddCommand(migrateCommands(a))
	rootCmd.AddCommand(backupCommands(a))

	return &Artha{cmd: rootCmd}
}

func (a Artha) executeCLI() {
	if err := a.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
