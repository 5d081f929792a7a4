package main

import (
	"Conspiracy/config"
	"Conspiracy/services/cleanup"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Maintenance entry point for the room store. It runs the same cleanup as the
// server, without serving HTTP:
//
//	go run ./cmd -action stats
//	go run ./cmd -action sweep
//	go run ./cmd -action purge -room <roomId>
func main() {
	action := flag.String("action", "stats", "stats, sweep or purge")
	roomID := flag.String("room", "", "room id for the purge action")
	timeout := flag.Duration("timeout", time.Minute, "deadline for the whole run")
	flag.Parse()

	switch {
	case *action != "stats" && *action != "sweep" && *action != "purge":
		fmt.Fprintf(os.Stderr, "unknown action %q\n", *action)
		os.Exit(2)
	case *action == "purge" && *roomID == "":
		fmt.Fprintln(os.Stderr, "purge needs -room")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	config.SetupLogger(cfg)

	repo, closeStore, err := config.ConnectStore(cfg)
	if err != nil {
		logrus.Fatalf("Error connecting to the %s room store: %v", cfg.RoomStore, err)
	}
	defer closeStore()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	scheduler := cleanup.NewScheduler(repo, cfg.Cleanup)

	var result interface{}
	switch *action {
	case "stats":
		result, err = scheduler.Stats(ctx)
	case "sweep":
		result, err = scheduler.PerformPeriodicSweep(ctx)
	case "purge":
		err = scheduler.Purge(ctx, *roomID)
		result = map[string]string{"deleted": *roomID}
	}
	if err != nil {
		closeStore()
		logrus.Fatalf("%s failed: %v", *action, err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		logrus.WithError(err).Error("Error writing result")
	}
}
