package session

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
)

// CommandSpeaker reads text aloud through an external text-to-speech program
// (for example `espeak` or `say`). The text is passed as the final argument.
type CommandSpeaker struct {
	Command []string

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewCommandSpeaker returns a speaker running command with args.
func NewCommandSpeaker(command ...string) *CommandSpeaker {
	return &CommandSpeaker{Command: command}
}

// Speak starts the program and returns without waiting for it. A readout
// already in progress is cancelled first.
func (c *CommandSpeaker) Speak(ctx context.Context, text string) error {
	if len(c.Command) == 0 {
		return fmt.Errorf("speech command not configured")
	}

	c.Cancel()

	speakCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	args := append(append([]string{}, c.Command[1:]...), text)
	cmd := exec.CommandContext(speakCtx, c.Command[0], args...)
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("start speech command: %w", err)
	}

	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	go func() {
		_ = cmd.Wait()
		cancel()
	}()
	return nil
}

// Cancel stops the current readout, if any.
func (c *CommandSpeaker) Cancel() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}
