// Command tlcp-demo connects to a push server, subscribes to the given items, and
// logs every update until interrupted. It exists to exercise the client
// package end to end and as a runnable reference for integrators.
//
// Command-line flags:
//
//	--server: push server address, e.g. https://push.example.com
//	--adapter-set: adapter set name (default: DEFAULT)
//	--items: comma-separated item names
//	--fields: comma-separated field names
//	--mode: MERGE, DISTINCT, RAW, or COMMAND (default: MERGE)
//	--user, --password: optional session credentials
//
// Environment variables TLCP_SERVER, TLCP_ADAPTER_SET, TLCP_ITEMS,
// TLCP_FIELDS, TLCP_MODE, TLCP_USER, TLCP_PASSWORD are used when the
// matching flag is left at its zero value.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	tlcpclient "github.com/streamspace-dev/tlcp-client"
)

func main() {
	server := flag.String("server", getEnvOrDefault("TLCP_SERVER", ""), "push server address")
	adapterSet := flag.String("adapter-set", getEnvOrDefault("TLCP_ADAPTER_SET", tlcpclient.DefaultAdapterSet), "adapter set name")
	items := flag.String("items", getEnvOrDefault("TLCP_ITEMS", ""), "comma-separated item names")
	fields := flag.String("fields", getEnvOrDefault("TLCP_FIELDS", ""), "comma-separated field names")
	mode := flag.String("mode", getEnvOrDefault("TLCP_MODE", "MERGE"), "subscription mode")
	user := flag.String("user", getEnvOrDefault("TLCP_USER", ""), "session user")
	password := flag.String("password", getEnvOrDefault("TLCP_PASSWORD", ""), "session password")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	if *verbose {
		log = log.Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}

	if *server == "" {
		log.Fatal().Msg("--server (or TLCP_SERVER) is required")
	}
	if *items == "" || *fields == "" {
		log.Fatal().Msg("--items and --fields (or TLCP_ITEMS/TLCP_FIELDS) are required")
	}

	client, err := tlcpclient.NewClient(*server, *adapterSet, tlcpclient.WithLogger(log))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build client")
	}
	if *user != "" {
		client.ConnectionDetails().SetUser(*user)
	}
	if *password != "" {
		client.ConnectionDetails().SetPassword(*password)
	}

	client.AddListener(&demoClientListener{log: log})

	sub, err := tlcpclient.NewSubscription(tlcpclient.Mode(*mode), splitCSV(*items), splitCSV(*fields))
	if err != nil {
		log.Fatal().Err(err).Msg("invalid subscription")
	}
	sub.AddListener(&demoSubscriptionListener{log: log})

	if err := client.Connect(); err != nil {
		log.Fatal().Err(err).Msg("failed to start connect")
	}

	if err := client.WaitUntilConnected(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("never connected")
	}
	if err := client.Subscribe(sub); err != nil {
		log.Fatal().Err(err).Msg("subscribe failed")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	client.Unsubscribe(sub)
	client.Disconnect()
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

type demoClientListener struct {
	tlcpclient.BaseClientListener
	log zerolog.Logger
}

func (d *demoClientListener) OnStatusChange(status tlcpclient.Status) {
	d.log.Info().Str("status", string(status)).Msg("status change")
}

func (d *demoClientListener) OnServerError(code int, message string) {
	d.log.Error().Int("code", code).Str("message", message).Msg("server error")
}

type demoSubscriptionListener struct {
	tlcpclient.BaseSubscriptionListener
	log zerolog.Logger
}

func (d *demoSubscriptionListener) OnSubscription() {
	d.log.Info().Msg("subscribed")
}

func (d *demoSubscriptionListener) OnSubscriptionError(code int, message string) {
	d.log.Error().Int("code", code).Str("message", message).Msg("subscription error")
}

func (d *demoSubscriptionListener) OnItemUpdate(update *tlcpclient.ItemUpdate) {
	d.log.Info().Str("item", update.ItemName).Interface("fields", update.Fields()).Msg("update")
}
