package replace

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/google/uuid"

	"github.com/cn1tools/cn1update/internal/branding"
	"github.com/cn1tools/cn1update/internal/logging"
	"github.com/cn1tools/cn1update/internal/platform"
)

// SwapCommand is the hidden subcommand a detached helper runs.
const SwapCommand = "swap"

// SwapIDEnv carries the id that ties a scheduling run's log line to the
// helper's own log lines.
var SwapIDEnv = branding.EnvVar("SWAP_ID")

// ProcessScheduler starts "<Executable> swap <staged> <dest>" as a detached
// process that keeps running after this one exits. The helper's stdout and
// stderr go to the null device; it writes its own rotating swap log.
type ProcessScheduler struct {
	Executable string
	Logger     *slog.Logger
}

// Schedule starts the helper and returns without waiting for it.
func (p *ProcessScheduler) Schedule(staged, dest string) error {
	if p.Executable == "" {
		return fmt.Errorf("swap helper executable is not known")
	}
	logger := p.Logger
	if logger == nil {
		logger = logging.Default()
	}

	id := uuid.NewString()
	cmd := exec.Command(p.Executable, SwapCommand, staged, dest)
	cmd.Env = append(os.Environ(), SwapIDEnv+"="+id)
	// Nil Stdin, Stdout and Stderr are wired to os.DevNull.
	platform.Detach(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting swap helper: %w", err)
	}
	logger.Info("scheduled deferred swap",
		logging.Path(dest), slog.String(logging.KeySwap, id), slog.Int("pid", cmd.Process.Pid))
	return cmd.Process.Release()
}
