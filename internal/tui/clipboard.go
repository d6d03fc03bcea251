package tui

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

var errNoClipboard = errors.New("no clipboard command available")

// copyText pipes text into the first available clipboard command.
func copyText(text string) error {
	cmd := detectClipboardCommand()
	if cmd == "" {
		return errNoClipboard
	}

	parts := strings.Fields(cmd)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := exec.CommandContext(ctx, parts[0], parts[1:]...)
	c.Stdin = strings.NewReader(text)
	return c.Run()
}

// detectClipboardCommand returns the clipboard command for the session:
// wl-copy on Wayland, then xclip or xsel on X11.
func detectClipboardCommand() string {
	for _, candidate := range []string{
		"wl-copy",
		"xclip -selection clipboard",
		"xsel --clipboard --input",
	} {
		if _, err := exec.LookPath(strings.Fields(candidate)[0]); err == nil {
			return candidate
		}
	}
	return ""
}
