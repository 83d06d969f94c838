package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:           "server",
		Short:         "Sales period comparison service",
		RunE:          serve,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Load the dataset and serve the comparison API",
		RunE:  serve,
	}

	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Print the dashboard for a date range as JSON",
		RunE:  report,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the service version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	cfgFile     string
	reportStart string
	reportEnd   string
	version     = "dev"
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to YAML configuration file (optional)")
	reportCmd.Flags().StringVar(&reportStart, "start", "", "first day of the range, YYYY-MM-DD")
	reportCmd.Flags().StringVar(&reportEnd, "end", "", "last day of the range, YYYY-MM-DD")
	rootCmd.AddCommand(serveCmd, reportCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
}
