// Command killswitch inspects and flips the persistent trading halt.
// Flipping it here is honored by any live session sharing the state file.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/quantlab/algotrader-kr/internal/state"
)

func main() {
	statePath := flag.String("state", "state/killswitch.json", "path to the kill-switch state file")
	flag.Parse()

	if v := os.Getenv("ALGOTRADER_STATE_PATH"); v != "" && !flagPassed("state") {
		*statePath = v
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}

	store := state.NewFileKillSwitchStore(*statePath)

	switch args[0] {
	case "status":
		runStatus(store)
	case "activate":
		reason := strings.Join(args[1:], " ")
		if reason == "" {
			reason = "manual halt"
		}
		runActivate(store, reason)
	case "deactivate":
		runDeactivate(store)
	default:
		printUsage()
		os.Exit(2)
	}
}

func runStatus(store *state.FileKillSwitchStore) {
	ks, err := store.Load()
	if err != nil {
		log.Fatalf("❌ Could not read kill switch: %v", err)
	}
	if ks.Active {
		fmt.Printf("🚨 ACTIVE since %s: %s\n", ks.UpdatedAt.Format("2006-01-02 15:04:05"), ks.Reason)
		os.Exit(1)
	}
	fmt.Println("✅ inactive, trading allowed")
}

func runActivate(store *state.FileKillSwitchStore, reason string) {
	if err := store.Save(state.KillSwitch{Active: true, Reason: reason, UpdatedAt: time.Now()}); err != nil {
		log.Fatalf("❌ Could not activate kill switch: %v", err)
	}
	fmt.Printf("🚨 Kill switch ACTIVATED: %s\n", reason)
}

func runDeactivate(store *state.FileKillSwitchStore) {
	if err := store.Save(state.KillSwitch{Active: false, UpdatedAt: time.Now()}); err != nil {
		log.Fatalf("❌ Could not deactivate kill switch: %v", err)
	}
	fmt.Println("✅ Kill switch deactivated, trading allowed")
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: killswitch [-state path] <command>

Commands:
  status               show the current kill-switch state
  activate [reason..]  halt all trading with an optional reason
  deactivate           allow trading again`)
}

func flagPassed(name string) bool {
	passed := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			passed = true
		}
	})
	return passed
}
