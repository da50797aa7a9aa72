// Command mqttsh is an interactive MQTT debug shell: connect to a broker,
// stream matching traffic through a live filter, and replay, export, or
// rule-tag what comes through.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/mqttsh/internal/config"
	"github.com/rustyeddy/mqttsh/internal/handlers"
	"github.com/rustyeddy/mqttsh/internal/logging"
	"github.com/rustyeddy/mqttsh/internal/shell"
	"github.com/rustyeddy/mqttsh/internal/transport"
	"github.com/rustyeddy/mqttsh/internal/wsfeed"
)

var (
	cfgFile   string
	broker    string
	clientID  string
	username  string
	password  string
	logLevel  string
	logFormat string
	wsListen  string
)

var rootCmd = &cobra.Command{
	Use:           "mqttsh",
	Short:         "Interactive MQTT debug shell",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runShell,
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "path to a TOML config file")
	rootCmd.Flags().StringVar(&broker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	rootCmd.Flags().StringVar(&clientID, "client-id", "", "MQTT client id (random suffix if empty)")
	rootCmd.Flags().StringVar(&username, "username", "", "MQTT username")
	rootCmd.Flags().StringVar(&password, "password", "", "MQTT password")
	rootCmd.Flags().StringVar(&logLevel, "log-level", logging.DefaultLevel, "log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&logFormat, "log-format", logging.DefaultFormat, "log format (text, json)")
	rootCmd.Flags().StringVar(&wsListen, "ws-listen", "", "address to serve the live-tail websocket feed on, e.g. :8089 (disabled if empty)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("mqttsh failed", "error", err)
		os.Exit(1)
	}
}

func runShell(cmd *cobra.Command, args []string) error {
	logger, level, closer, err := logging.Build(logging.Config{Level: logLevel, Format: logFormat, Output: "stderr"})
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}
	logging.ApplyGlobal(logger, level)

	shCfg := config.Default()
	trCfg := transport.Config{Broker: broker, ClientID: clientID, Username: username, Password: password}

	if cfgFile != "" {
		fc, err := config.LoadFile(cfgFile)
		if err != nil {
			return err
		}
		shCfg = fc.Shell
		if fc.MQTT.Broker != "" {
			trCfg = fc.MQTT.TransportConfig()
		}
	}

	tr := transport.New(trCfg)

	var hub *wsfeed.Hub
	if wsListen != "" {
		hub = wsfeed.NewHub(logger)
		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		srv := &http.Server{Addr: wsListen, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("wsfeed listener failed", "error", err)
			}
		}()
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            shCfg.Prompt,
		HistoryFile:       "/tmp/mqttsh_history.tmp",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	sh := shell.New(shell.Options{
		Config:    shCfg,
		Transport: tr,
		Lines:     readlineSource{rl},
		Out:       os.Stdout,
		Handlers:  handlers.All(),
		Log:       logger,
		WSFeed:    hub,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sh.Connect(ctx); err != nil {
		return err
	}
	return sh.Run(ctx)
}

// readlineSource adapts *readline.Instance to shell.LineSource.
type readlineSource struct {
	rl *readline.Instance
}

func (r readlineSource) ReadLine() (string, error) {
	line, err := r.rl.Readline()
	if err == readline.ErrInterrupt {
		if len(line) == 0 {
			return "", io.EOF
		}
		return "", nil
	}
	return line, err
}
