package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/hollis/cantata/internal/api"
	"github.com/hollis/cantata/internal/config"
	"github.com/hollis/cantata/internal/log"
	"github.com/hollis/cantata/internal/player"
	"github.com/hollis/cantata/internal/service"
	"github.com/hollis/cantata/internal/session"
	"github.com/hollis/cantata/internal/tui"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	var showVersion bool
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.Parse()

	if showVersion {
		fmt.Printf("cantata %s\n", Version)
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := log.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = log.NullLogger()
	}
	slog.SetDefault(logger)

	logger.Info("starting cantata", "version", Version)

	if !cfg.IsConfigured() {
		if err := runSetupFlow(cfg); err != nil {
			return err
		}
	}

	// Session store lives in a per-server cache directory
	store, err := session.NewStore(config.DefaultCacheDir(), cfg.Server.URL)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer store.Close()

	// The client reads the token through the store on every request
	client := api.NewClient(cfg.Server.URL, store.Token, logger)
	bus := session.NewBus()
	sess := session.New(store, bus, client, logger)

	// First run on this server: prompt for credentials before the TUI
	if store.Token() == "" {
		if err := runLoginFlow(sess); err != nil {
			return err
		}
	}

	launcher := player.NewLauncher(cfg.Player.Command, cfg.Player.Args, logger)
	sources, err := service.NewSourceManager(client, launcher, cfg.Downloads.Dir, logger)
	if err != nil {
		return fmt.Errorf("failed to create source manager: %w", err)
	}
	defer sources.Close()

	library := service.NewLibraryService(client, sources, logger)
	uploads := service.NewUploadService(client, sess, logger)
	users := service.NewUsersService(client, logger)

	model := tui.NewModel(sess, library, sources, uploads, users)

	p := tea.NewProgram(model, tea.WithAltScreen())

	logger.Info("starting TUI")

	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("shutting down")
	return nil
}

// runSetupFlow prompts for and probes the server URL, then saves it.
func runSetupFlow(cfg *config.Config) error {
	fmt.Println()
	fmt.Println("Welcome to cantata!")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("Enter your audio server URL (e.g., http://192.168.1.100:8000): ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		serverURL := strings.TrimRight(strings.TrimSpace(input), "/")
		if serverURL == "" {
			fmt.Println("Server URL cannot be empty. Please try again.")
			continue
		}

		fmt.Println("Checking server...")
		if err := probeServer(serverURL); err != nil {
			fmt.Printf("✗ Could not reach the server: %v\n\n", err)
			continue
		}
		fmt.Println("✓ Server reachable")

		cfg.Server.URL = serverURL
		break
	}

	if err := config.SaveConfig(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	fmt.Println("✓ Configuration saved")
	fmt.Println()
	return nil
}

// probeServer checks the base URL answers at all
func probeServer(serverURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serverURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// runLoginFlow prompts for credentials and logs in before the TUI starts.
func runLoginFlow(sess *session.Session) error {
	fmt.Println()
	fmt.Println("Sign in")
	fmt.Println("━━━━━━━")

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Username: ")
	username, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}
	username = strings.TrimSpace(username)

	fmt.Print("Password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sess.Login(ctx, username, string(passwordBytes)); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	fmt.Println("✓ Signed in")
	fmt.Println()
	return nil
}
