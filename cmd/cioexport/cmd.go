package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/getzep/cioexport/config"
	"github.com/getzep/cioexport/internal"
)

var (
	log *logrus.Logger

	cfgFile       string
	showVersion   bool
	dumpConfig    bool
	generateToken bool
	exportFile    string
)

var cmd = &cobra.Command{
	Use:   "cioexport",
	Short: "cioexport forwards analytics events to Customer.io, creating customers on first sight",
	Run:   func(cmd *cobra.Command, args []string) { run() },
}

var exportCmd = &cobra.Command{
	Use:     "export",
	Short:   "Export a JSON file of events to Customer.io and exit",
	Example: "cioexport export --file events.json",
	RunE: func(cmd *cobra.Command, args []string) error {
		return exportFromFile(cmd.Context(), exportFile, cmd.OutOrStdout())
	},
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test utilities",
}

var createFixturesCmd = &cobra.Command{
	Use:   "create-fixtures",
	Short: "Create fake event fixtures for testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		seed, _ := cmd.Flags().GetInt64("seed")
		output, _ := cmd.Flags().GetString("output")
		if err := writeFixtures(output, count, seed); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d events to %s\n", count, output)
		return nil
	},
}

var dumpJsonSchemaCmd = &cobra.Command{
	Use:     "json-schema",
	Short:   "Generates JSON Schema for cioexport's configuration file",
	Example: "cioexport json-schema > cioexport_config_schema.json",
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, err := config.JSONSchema()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(schema))
		return nil
	},
}

func init() {
	testCmd.AddCommand(createFixturesCmd)
	cmd.AddCommand(testCmd)
	cmd.AddCommand(exportCmd)
	cmd.AddCommand(dumpJsonSchemaCmd)

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default config.yaml)")
	cmd.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "print version number")
	cmd.PersistentFlags().BoolVarP(&dumpConfig, "dump-config", "d", false, "dump config")
	cmd.PersistentFlags().
		BoolVarP(&generateToken, "generate-token", "g", false, "generate a new JWT token")

	exportCmd.Flags().StringVarP(&exportFile, "file", "f", "-", "JSON file holding an event or an array of events (- for stdin)")

	createFixturesCmd.Flags().Int("count", 100, "Number of events to generate")
	createFixturesCmd.Flags().Int64("seed", 0, "Random seed (0 picks a random one)")
	createFixturesCmd.Flags().String("output", "./test_data/events.json", "Path to output fixtures")
}

// Execute executes the root cobra command.
func Execute() {
	log = internal.GetLogger()
	log.SetLevel(logrus.InfoLevel)

	err := cmd.Execute()

	if err != nil {
		os.Exit(1)
	}
}
