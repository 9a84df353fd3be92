package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/you-humble/printq/core/apperr"
	"github.com/you-humble/printq/core/grpc/converterpb"
)

const outputTail = 512

// Soffice runs a headless office suite as the conversion subprocess.
type Soffice struct {
	bin       string
	timeout   time.Duration
	waitDelay time.Duration
}

func NewSoffice(bin string, timeout time.Duration) *Soffice {
	if bin == "" {
		bin = "soffice"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Soffice{bin: bin, timeout: timeout, waitDelay: 2 * time.Second}
}

// LookPath resolves the converter binary.
func (s *Soffice) LookPath() (string, error) {
	path, err := exec.LookPath(s.bin)
	if err != nil {
		return "", converterpb.ErrConverterUnavailable.
			WithDetail(fmt.Sprintf("converter binary %q not found", s.bin)).
			Wrap(err)
	}
	return path, nil
}

func (s *Soffice) Run(ctx context.Context, jobDir, input string) error {
	bin, err := s.LookPath()
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, bin,
		"--headless",
		"--norestore",
		"--nolockcheck",
		"--nodefault",
		"-env:UserInstallation=file://"+jobDir+"/profile",
		"--convert-to", "pdf",
		"--outdir", jobDir,
		input,
	)
	cmd.Dir = jobDir
	cmd.WaitDelay = s.waitDelay

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	killProcessGroup(cmd)

	err = cmd.Run()
	if err == nil {
		return nil
	}

	if runCtx.Err() != nil {
		detail := fmt.Sprintf("converter timed out after %s", s.timeout)
		if ctx.Err() != nil {
			detail = "conversion canceled"
		}
		return converterpb.ErrConversionFailed.
			WithKind(apperr.KindTimeout).
			WithDetail(detail).
			Wrap(runCtx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return converterpb.ErrConversionFailed.WithDetail(diagnostic(exitErr, out.Bytes()))
	}
	return converterpb.ErrConversionFailed.WithDetail("converter did not run").Wrap(err)
}

func diagnostic(exitErr *exec.ExitError, output []byte) string {
	if len(output) > outputTail {
		output = output[len(output)-outputTail:]
	}
	tail := strings.TrimSpace(string(output))
	if tail == "" {
		return exitErr.Error()
	}
	return exitErr.Error() + ": " + tail
}
