package installer

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ralt/releasetap/internal/models"
	"github.com/sirupsen/logrus"
)

// SmokeTimeout bounds the post-install help invocation
const SmokeTimeout = 30 * time.Second

// maxSmokeOutput limits how much output is quoted in an error
const maxSmokeOutput = 2048

// Smoke runs "<path> -h" and requires exit code 0
func Smoke(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, SmokeTimeout)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, path, "-h")
	cmd.Stdout = &out
	cmd.Stderr = &out

	logrus.Debugf("Running smoke test: %s -h", path)
	if err := cmd.Run(); err != nil {
		output := strings.TrimSpace(out.String())
		if len(output) > maxSmokeOutput {
			output = output[:maxSmokeOutput] + "..."
		}
		return &models.TapError{
			Type:    models.ErrInstall,
			Package: path,
			Err:     fmt.Errorf("smoke test %q failed: %w: %s", path+" -h", err, output),
		}
	}

	return nil
}
