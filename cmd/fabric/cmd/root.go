package cmd

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "fabric",
	Short: "Fabric CLI - run and drive a compute/storage fabric node",
	Long: `Fabric is a CLI for running tracker and peer nodes in a
peer-to-peer compute and storage fabric, and for submitting work and
owned files against a running fabric.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to rootCmd.
func Execute() error {
	return rootCmd.Execute()
}
