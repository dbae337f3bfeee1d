// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/edgeo/drivers/ism8/ism8"
)

var (
	cfgFile   string
	listen    string
	port      int
	outputFmt string
	verbose   bool
	hexTrace  bool

	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "edgeo-ism8",
	Short: "A Wolf ISM8 heating module gateway CLI",
	Long: `edgeo-ism8 is a command-line tool for the Wolf ISM8 heating interface module.

The ISM8 connects to this tool over TCP and pushes datapoint updates. The
tool acknowledges every message, keeps the latest value of every datapoint
and can write values back to writable datapoints.

Examples:
  # Accept the ISM8 connection and log every update
  edgeo-ism8 serve

  # Serve with an MQTT bridge and a Prometheus endpoint
  edgeo-ism8 serve --mqtt-broker tcp://localhost:1883 --metrics-addr :9112

  # List the writable datapoints of the heating device
  edgeo-ism8 datapoints --device HG1 --writable

  # Decode a captured frame
  edgeo-ism8 decode "06 20 f0 80 00 15 04 00 00 00 f0 06 00 01 00 01 00 01 03 01 01"

  # Show the frame that would set a setpoint
  edgeo-ism8 encode 56 51.5`,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Setup logger
		logLevel := slog.LevelInfo
		if viper.GetBool("verbose") {
			logLevel = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))

		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.edgeo-ism8.yaml)")
	rootCmd.PersistentFlags().StringVarP(&listen, "listen", "l", "", "Local address to accept the ISM8 on")
	rootCmd.PersistentFlags().IntVarP(&port, "port", "p", ism8.DefaultPort, "ISM8 TCP port")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format (table, json, csv, yaml, raw)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&hexTrace, "hex-trace", false, "Log every frame as hex at debug level")

	// Bind flags to viper
	viper.BindPFlag("listen", rootCmd.PersistentFlags().Lookup("listen"))
	viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("hex-trace", rootCmd.PersistentFlags().Lookup("hex-trace"))

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(datapointsCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.SetConfigName(".edgeo-ism8")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("ISM8")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// listenAddress returns the configured address to accept the module on
func listenAddress() string {
	return net.JoinHostPort(viper.GetString("listen"), strconv.Itoa(viper.GetInt("port")))
}

// createEngine creates an engine with current configuration
func createEngine(opts ...ism8.Option) *ism8.Engine {
	base := []ism8.Option{
		ism8.WithLogger(logger),
		ism8.WithHexTrace(viper.GetBool("hex-trace")),
	}
	return ism8.NewEngine(append(base, opts...)...)
}

// newFormatter returns a formatter for the configured output format
func newFormatter() *Formatter {
	return NewFormatter(viper.GetString("output"))
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("edgeo-ism8 version 1.0.0")
	},
}
