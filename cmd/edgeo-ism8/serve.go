package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/edgeo/drivers/ism8/ism8"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept the ISM8 connection and track datapoints",
	Long: `Serve listens for the ISM8 module, acknowledges every message it sends
and logs each datapoint update.

When an MQTT broker is configured, every update is published retained on
<prefix>/<device>/<id>/state and payloads published on
<prefix>/<device>/<id>/set are written to the module.

Examples:
  # Listen on the default port and log updates
  edgeo-ism8 serve

  # Bridge to MQTT
  edgeo-ism8 serve --mqtt-broker tcp://broker:1883 --mqtt-prefix heating

  # Expose Prometheus metrics and drop idle modules after 10 minutes
  edgeo-ism8 serve --metrics-addr :9112 --idle-timeout 10m`,

	RunE: runServe,
}

func init() {
	serveCmd.Flags().Bool("request-all", true, "Request every datapoint when the module connects")
	serveCmd.Flags().Duration("idle-timeout", 0, "Close the connection after this long without data (0 = never)")
	serveCmd.Flags().Duration("write-timeout", 5*time.Second, "Timeout for sending a frame")
	serveCmd.Flags().Duration("keepalive", 30*time.Second, "TCP keep-alive period")
	serveCmd.Flags().String("metrics-addr", "", "Address for the Prometheus endpoint (e.g., :9112)")
	serveCmd.Flags().String("mqtt-broker", "", "MQTT broker URL (e.g., tcp://localhost:1883)")
	serveCmd.Flags().String("mqtt-prefix", "ism8", "MQTT topic prefix")
	serveCmd.Flags().String("mqtt-client-id", "edgeo-ism8", "MQTT client id")
	serveCmd.Flags().String("mqtt-username", "", "MQTT username")
	serveCmd.Flags().String("mqtt-password", "", "MQTT password")
	serveCmd.Flags().Int("mqtt-qos", 0, "MQTT quality of service (0, 1, 2)")

	viper.BindPFlag("serve.request-all", serveCmd.Flags().Lookup("request-all"))
	viper.BindPFlag("serve.idle-timeout", serveCmd.Flags().Lookup("idle-timeout"))
	viper.BindPFlag("serve.write-timeout", serveCmd.Flags().Lookup("write-timeout"))
	viper.BindPFlag("serve.keepalive", serveCmd.Flags().Lookup("keepalive"))
	viper.BindPFlag("metrics.addr", serveCmd.Flags().Lookup("metrics-addr"))
	viper.BindPFlag("mqtt.broker", serveCmd.Flags().Lookup("mqtt-broker"))
	viper.BindPFlag("mqtt.prefix", serveCmd.Flags().Lookup("mqtt-prefix"))
	viper.BindPFlag("mqtt.client-id", serveCmd.Flags().Lookup("mqtt-client-id"))
	viper.BindPFlag("mqtt.username", serveCmd.Flags().Lookup("mqtt-username"))
	viper.BindPFlag("mqtt.password", serveCmd.Flags().Lookup("mqtt-password"))
	viper.BindPFlag("mqtt.qos", serveCmd.Flags().Lookup("mqtt-qos"))
}

func runServe(cmd *cobra.Command, args []string) error {
	qos := viper.GetInt("mqtt.qos")
	if qos < 0 || qos > 2 {
		return fmt.Errorf("invalid MQTT QoS: %d", qos)
	}

	var bridge *mqttBridge
	if broker := viper.GetString("mqtt.broker"); broker != "" {
		bridge = newMQTTBridge(mqttConfig{
			Broker:   broker,
			ClientID: viper.GetString("mqtt.client-id"),
			Username: viper.GetString("mqtt.username"),
			Password: viper.GetString("mqtt.password"),
			Prefix:   viper.GetString("mqtt.prefix"),
			QoS:      byte(qos),
		}, logger)
	}

	engine := createEngine(ism8.WithUpdateHandler(func(dp ism8.Datapoint, sv ism8.StoredValue) {
		logger.Info("datapoint",
			slog.Int("id", int(sv.ID)),
			slog.String("device", dp.Device),
			slog.String("name", dp.Name),
			slog.String("value", formatStoredValue(dp, sv.Value)),
		)
		if bridge != nil {
			bridge.Publish(dp, sv)
		}
	}))

	server := ism8.NewServer(listenAddress(), engine,
		ism8.WithServerLogger(logger),
		ism8.WithRequestAllOnConnect(viper.GetBool("serve.request-all")),
		ism8.WithIdleTimeout(viper.GetDuration("serve.idle-timeout")),
		ism8.WithWriteTimeout(viper.GetDuration("serve.write-timeout")),
		ism8.WithKeepAlive(viper.GetDuration("serve.keepalive")),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		cancel()
	}()

	if err := server.Listen(ctx); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer server.Close()

	if bridge != nil {
		bridge.Connect(engine)
		defer bridge.Close()
	}

	errCh := make(chan error, 1)
	if addr := viper.GetString("metrics.addr"); addr != "" {
		go func() {
			if err := serveMetrics(ctx, addr, engine); err != nil {
				errCh <- fmt.Errorf("metrics endpoint: %w", err)
				cancel()
			}
		}()
	}

	fmt.Fprintf(os.Stderr, "Waiting for the ISM8 on %s (Ctrl+C to stop)\n", server.Addr())

	if err := server.Serve(ctx); err != nil {
		return err
	}

	select {
	case err := <-errCh:
		return err
	default:
	}

	printSummary(engine.Metrics().Snapshot())
	return nil
}

// formatStoredValue appends the unit of the datapoint type, if any
func formatStoredValue(dp ism8.Datapoint, v ism8.Value) string {
	if unit := dp.Type.Unit(); unit != "" {
		return v.String() + " " + unit
	}
	return v.String()
}

func printSummary(snap ism8.MetricsSnapshot) {
	fmt.Fprintln(os.Stderr, "\nSession summary:")
	fmt.Fprintf(os.Stderr, "  Uptime:              %s\n", snap.Uptime.Round(time.Second))
	fmt.Fprintf(os.Stderr, "  Connections:         %d\n", snap.Connections)
	fmt.Fprintf(os.Stderr, "  Frames received:     %d\n", snap.FramesReceived)
	fmt.Fprintf(os.Stderr, "  Frames discarded:    %d\n", snap.FramesDiscarded)
	fmt.Fprintf(os.Stderr, "  Datapoints decoded:  %d\n", snap.DatapointsDecoded)
	fmt.Fprintf(os.Stderr, "  Datapoints retained: %d\n", snap.DatapointsRetained)
	fmt.Fprintf(os.Stderr, "  Writes sent:         %d\n", snap.WritesSent)
}
