package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile      string
	outputFormat string
	shimPath     string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ncclspy",
	Short: "CLI for the ncclspy NCCL interposer",
	Long: `ncclspy manages the NCCL broadcast interposer: it launches workloads
with the shim preloaded, checks that the genuine library resolves on a host,
and inspects or exports recorded call traces.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.ncclspy/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table or json")
	rootCmd.PersistentFlags().StringVar(&shimPath, "shim", "", "path to libncclshim.so (default from config or NCCLSPY_SHIM)")
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(filepath.Join(home, ".ncclspy"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()
	viper.BindEnv("shim_path", "NCCLSPY_SHIM")

	if err := viper.ReadInConfig(); err == nil {
		if shimPath == "" && viper.GetString("shim_path") != "" {
			shimPath = viper.GetString("shim_path")
		}
	}
	if shimPath == "" {
		shimPath = viper.GetString("shim_path")
	}
}

// GetShimPath returns the configured interposer library path
func GetShimPath() string {
	return shimPath
}

// IsJSONOutput returns true if JSON output is requested
func IsJSONOutput() bool {
	return outputFormat == "json"
}
