package player

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"sync"
	"syscall"
)

// candidatePlayers defines the preferred audio player order per platform
// when no command is configured.
var candidatePlayers = map[string][]string{
	"darwin":  {"mpv", "vlc", "afplay"},
	"linux":   {"mpv", "vlc", "ffplay"},
	"windows": {"mpv", "vlc"},
}

// Launcher plays local audio files through an external player process.
// Unlike a video launcher that fires and forgets, it keeps the process
// handle so the current track can be stopped when another one expands.
type Launcher struct {
	command string
	args    []string
	logger  *slog.Logger

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewLauncher creates a launcher for the configured player command.
// Empty command means auto-detect from the platform candidates.
func NewLauncher(command string, args []string, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{
		command: command,
		args:    args,
		logger:  logger,
	}
}

// Play stops any current playback and starts the player on the given file.
func (l *Launcher) Play(path string) error {
	l.Stop()

	command := l.command
	if command == "" {
		command = detectPlayer()
	}
	if command == "" {
		return fmt.Errorf("no audio player found; set player.command in the config")
	}

	args := append(append([]string{}, l.args...), path)
	cmd := exec.Command(command, args...)
	if err := cmd.Start(); err != nil {
		l.logger.Error("failed to start player", "command", command, "error", err)
		return fmt.Errorf("failed to start %s: %w", command, err)
	}

	l.logger.Debug("playback started", "command", command, "file", path)

	l.mu.Lock()
	l.cmd = cmd
	l.mu.Unlock()

	// Reap the process so a track playing to completion leaves no zombie.
	go func() {
		cmd.Wait()
		l.mu.Lock()
		if l.cmd == cmd {
			l.cmd = nil
		}
		l.mu.Unlock()
	}()

	return nil
}

// Stop terminates the current player process, if any.
func (l *Launcher) Stop() {
	l.mu.Lock()
	cmd := l.cmd
	l.cmd = nil
	l.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return
	}
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		cmd.Process.Kill()
	}
}

// detectPlayer returns the first candidate found in PATH.
func detectPlayer() string {
	candidates, ok := candidatePlayers[runtime.GOOS]
	if !ok {
		candidates = candidatePlayers["linux"]
	}
	for _, name := range candidates {
		if _, err := exec.LookPath(name); err == nil {
			return name
		}
	}
	return ""
}
