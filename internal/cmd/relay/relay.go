// Package relay parses relay command flags and composes transport entrypoints.
package relay

import (
	"context"
	"flag"
	"fmt"
	"strings"

	entrypoint "github.com/louisbranch/chatrelay/internal/platform/cmd"
	server "github.com/louisbranch/chatrelay/internal/services/relay/app"
)

// Config holds relay command configuration.
type Config struct {
	HTTPAddr string `env:"CHATRELAY_HTTP_ADDR" envDefault:":8086"`
	Rooms    string `env:"CHATRELAY_ROOMS"     envDefault:"general:General discussion,random:Off-topic chatter"`
}

// ParseConfig parses environment and flags into a Config. Flags are
// registered before the env pass so env values become the effective
// defaults and explicit flags override them.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	fs.StringVar(&cfg.HTTPAddr, "http-addr", "", "relay HTTP listen address")
	fs.StringVar(&cfg.Rooms, "rooms", "", "room catalog as name:description pairs separated by commas")
	if err := entrypoint.ParseConfigFromArgs(&cfg, fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseRooms parses a room catalog of the form
// "name:description[,name:description...]" into room metadata.
func ParseRooms(raw string) ([]server.RoomMetadata, error) {
	var rooms []server.RoomMetadata
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, description, _ := strings.Cut(entry, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("room entry %q is missing a name", entry)
		}
		rooms = append(rooms, server.RoomMetadata{
			Name:        name,
			Description: strings.TrimSpace(description),
		})
	}
	if len(rooms) == 0 {
		return nil, fmt.Errorf("room catalog is empty")
	}
	return rooms, nil
}

// Run builds the relay app and starts realtime transport behavior.
func Run(ctx context.Context, cfg Config) error {
	rooms, err := ParseRooms(cfg.Rooms)
	if err != nil {
		return fmt.Errorf("parse rooms: %w", err)
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceRelay, func(context.Context) error {
		if err := server.Run(ctx, server.Config{
			HTTPAddr: cfg.HTTPAddr,
			Rooms:    rooms,
		}); err != nil {
			return fmt.Errorf("serve relay: %w", err)
		}
		return nil
	})
}
