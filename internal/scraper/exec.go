package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/kesef/internal/errs"
	"github.com/and161185/kesef/internal/model"
)

// Exec runs the scraper as a child process per call.
type Exec struct {
	Command string
	Args    []string
	// Timeout bounds one scrape, process start to exit. Zero means no bound.
	Timeout time.Duration
	Env     []string
	Logger  *zap.Logger
}

// NewExec constructs a process-backed scraper.
func NewExec(command string, args []string, timeout time.Duration, logger *zap.Logger) *Exec {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exec{Command: command, Args: args, Timeout: timeout, Logger: logger}
}

// Scrape sends req to the scraper process and decodes its result.
// An unsuccessful result is returned as *Failure.
func (e *Exec) Scrape(ctx context.Context, req model.ScrapeRequest) ([]model.ScrapedAccount, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	in, err := json.Marshal(request{
		CompanyID:   string(req.Institution),
		StartDate:   req.StartDate.UTC().Format(time.RFC3339),
		Credentials: req.Credentials,
		Options: options{
			CombineInstallments: false,
			ShowBrowser:         false,
			Timeout:             e.Timeout.Milliseconds(),
		},
	})
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, e.Command, e.Args...)
	cmd.Stdin = bytes.NewReader(in)
	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	started := time.Now()
	runErr := cmd.Run()
	e.Logger.Debug("scraper finished",
		zap.String("institution", string(req.Institution)),
		zap.Duration("took", time.Since(started)),
		zap.Int("stdout_bytes", stdout.Len()),
	)

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, &Failure{Type: "TIMEOUT", Message: fmt.Sprintf("scraper timed out after %s", e.Timeout)}
		}
		return nil, ctxErr
	}

	var res result
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &res); err != nil {
		if runErr != nil {
			return nil, fmt.Errorf("%w: scraper process: %v: %s", errs.ErrExternalService, runErr, tail(stderr.String()))
		}
		return nil, fmt.Errorf("%w: decode scraper output: %v", errs.ErrExternalService, err)
	}
	if !res.Success {
		return nil, &Failure{Type: res.ErrorType, Message: res.ErrorMessage}
	}
	return res.accounts(e.Logger.With(zap.String("institution", string(req.Institution)))), nil
}

// tail keeps the end of the process's stderr, where the error usually is.
func tail(s string) string {
	const keep = 512
	s = strings.TrimSpace(s)
	if len(s) > keep {
		return "..." + s[len(s)-keep:]
	}
	return s
}
