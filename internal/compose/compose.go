// Package compose drives the external container orchestrator: the compose
// lifecycle, the shared docker network and maintenance commands executed
// inside running containers.
package compose

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/shopstack/shopctl/internal/envfile"
	"github.com/shopstack/shopctl/internal/logging"
)

// OrchestratorError indicates that a compose or docker lifecycle command
// exited non-zero. It is fatal for the run.
type OrchestratorError struct {
	// Op is the lifecycle operation that failed (down, pull, up, ...).
	Op string
	// Err is the underlying cause.
	Err error
}

func (e *OrchestratorError) Error() string {
	return fmt.Sprintf("orchestrator %s: %v", e.Op, e.Err)
}

func (e *OrchestratorError) Unwrap() error { return e.Err }

// MaintenanceCommandError indicates that a post-deploy maintenance command
// failed inside a running container. It is surfaced to the operator but does
// not fail the run.
type MaintenanceCommandError struct {
	// Command is the maintenance command that failed.
	Command string
	// Err is the underlying cause.
	Err error
}

func (e *MaintenanceCommandError) Error() string {
	return fmt.Sprintf("maintenance command %q: %v", e.Command, e.Err)
}

func (e *MaintenanceCommandError) Unwrap() error { return e.Err }

// runFunc executes an external command with the given stdin; probeFunc runs
// a command quietly for existence checks. Both exist so tests can stub the
// docker CLI.
type (
	runFunc   func(ctx context.Context, stdin io.Reader, name string, args ...string) error
	probeFunc func(ctx context.Context, name string, args ...string) error
)

// Client wraps the docker and docker compose CLIs for one rendered manifest.
// ExtraEnv is a scoped environment overlay passed only to the spawned
// processes; the calling process environment is never mutated.
type Client struct {
	// File is the compose manifest path.
	File string
	// Dir is the working directory for compose invocations.
	Dir string
	// ExtraEnv is merged over the inherited environment for each command.
	ExtraEnv envfile.Vars

	logger *slog.Logger
	run    runFunc
	probe  probeFunc
}

// NewClient constructs a Client for the manifest at file, running in dir.
func NewClient(file, dir string, extraEnv envfile.Vars, logger *slog.Logger) *Client {
	c := &Client{File: file, Dir: dir, ExtraEnv: extraEnv, logger: logger}
	c.run = c.runCommand
	c.probe = c.probeCommand
	return c
}

// Down stops the stack and removes orphaned containers.
func (c *Client) Down(ctx context.Context) error {
	if err := c.compose(ctx, "down", "--remove-orphans"); err != nil {
		return &OrchestratorError{Op: "down", Err: err}
	}
	return nil
}

// Pull fetches the latest images referenced by the manifest.
func (c *Client) Pull(ctx context.Context) error {
	if err := c.compose(ctx, "pull"); err != nil {
		return &OrchestratorError{Op: "pull", Err: err}
	}
	return nil
}

// Up starts all services in the background, rebuilding as needed.
func (c *Client) Up(ctx context.Context) error {
	if err := c.compose(ctx, "up", "-d", "--build"); err != nil {
		return &OrchestratorError{Op: "up", Err: err}
	}
	return nil
}

// Exec runs a command inside a running service container.
func (c *Client) Exec(ctx context.Context, service string, command ...string) error {
	args := append([]string{"exec", "-T", service}, command...)
	return c.compose(ctx, args...)
}

// RunMigrations applies the database schema inside the api container.
func (c *Client) RunMigrations(ctx context.Context) error {
	if err := c.Exec(ctx, "api", "python3", "manage.py", "migrate"); err != nil {
		return &MaintenanceCommandError{Command: "migrate", Err: err}
	}
	return nil
}

// CollectStatic gathers static assets inside the api container.
func (c *Client) CollectStatic(ctx context.Context) error {
	if err := c.Exec(ctx, "api", "python3", "manage.py", "collectstatic", "--noinput"); err != nil {
		return &MaintenanceCommandError{Command: "collectstatic", Err: err}
	}
	return nil
}

// HasNetwork reports whether the named docker network already exists.
func (c *Client) HasNetwork(ctx context.Context, name string) bool {
	return c.probe(ctx, "docker", "network", "inspect", name) == nil
}

// EnsureNetwork creates the named docker network unless it already exists.
func (c *Client) EnsureNetwork(ctx context.Context, name string) error {
	if c.HasNetwork(ctx, name) {
		return nil
	}
	if err := c.run(ctx, nil, "docker", "network", "create", name); err != nil {
		return &OrchestratorError{Op: "network create", Err: err}
	}
	return nil
}

// Login authenticates against the image registry. The password is fed
// through stdin so it never appears in the process argument list.
func (c *Client) Login(ctx context.Context, user, password string) error {
	stdin := strings.NewReader(password)
	if err := c.run(ctx, stdin, "docker", "login", "--username", user, "--password-stdin"); err != nil {
		return &OrchestratorError{Op: "login", Err: err}
	}
	return nil
}

func (c *Client) compose(ctx context.Context, args ...string) error {
	full := append([]string{"compose", "-f", c.File}, args...)
	return c.run(ctx, nil, "docker", full...)
}

func (c *Client) runCommand(ctx context.Context, stdin io.Reader, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = c.Dir

	out := logging.NewWriter(c.logger, name+" "+firstArg(args))
	cmd.Stdout = out
	cmd.Stderr = out
	if stdin != nil {
		cmd.Stdin = stdin
	}

	cmd.Env = c.environ()

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %v failed: %w", name, args, err)
	}
	return nil
}

// environ merges the scoped overlay over the inherited environment for one
// spawned process. A nil result lets exec fall back to the plain process
// environment.
func (c *Client) environ() []string {
	if len(c.ExtraEnv) == 0 {
		return nil
	}
	return envfile.Merge(envfile.FromOS(), c.ExtraEnv).Environ()
}

func (c *Client) probeCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = c.Dir
	var sink bytes.Buffer
	cmd.Stdout = &sink
	cmd.Stderr = &sink
	return cmd.Run()
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
