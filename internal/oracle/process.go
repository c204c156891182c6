package oracle

import (
	"fmt"
	"os/exec"
	"time"
)

// Start launches a UCI engine binary and completes the handshake.
func Start(path string, initTimeout time.Duration) (*Gateway, error) {
	cmd := exec.Command(path)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("oracle: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("oracle: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("oracle: start %s: %w", path, err)
	}

	g := New(stdout, stdin)
	g.closeFn = func() error {
		stdin.Close()
		return cmd.Wait()
	}

	if err := g.Init(initTimeout); err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return nil, err
	}
	return g, nil
}
