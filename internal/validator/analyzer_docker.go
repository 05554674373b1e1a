package validator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// DefaultDockerImage ships python3 and pylint.
const DefaultDockerImage = "cytopia/pylint:latest"

const containerWorkDir = "/submission"

// DockerAnalyzer runs the analysis tools inside a short-lived container so
// the host does not need a python toolchain.
type DockerAnalyzer struct {
	docker    *client.Client
	image     string
	syntaxCmd []string
	styleCmd  []string
	tempDir   string
}

// NewDockerAnalyzer connects to the docker daemon at host.
func NewDockerAnalyzer(host, image string, syntaxCmd, styleCmd []string, tempDir string) (*DockerAnalyzer, error) {
	opts := []client.Opt{client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	} else {
		opts = append(opts, client.FromEnv)
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	if image == "" {
		image = DefaultDockerImage
	}
	if len(syntaxCmd) == 0 {
		syntaxCmd = DefaultSyntaxCommand
	}
	if len(styleCmd) == 0 {
		styleCmd = DefaultStyleCommand
	}

	return &DockerAnalyzer{
		docker:    cli,
		image:     image,
		syntaxCmd: syntaxCmd,
		styleCmd:  styleCmd,
		tempDir:   tempDir,
	}, nil
}

func (a *DockerAnalyzer) Name() string {
	return string(ModeDocker)
}

// CheckSyntax compiles the submission inside the container.
func (a *DockerAnalyzer) CheckSyntax(ctx context.Context, code string) (Diagnostics, error) {
	out, exitCode, err := a.run(ctx, a.syntaxCmd, code)
	if err != nil {
		return Diagnostics{}, err
	}
	if exitCode != 0 && syntaxToolFailed(exitCode, out) {
		return Diagnostics{}, fmt.Errorf("%w: syntax container exited with %d", ErrToolUnavailable, exitCode)
	}
	return classifyCompileOutput(out), nil
}

// CheckStyle lints the submission inside the container.
func (a *DockerAnalyzer) CheckStyle(ctx context.Context, code string) (Diagnostics, error) {
	out, exitCode, err := a.run(ctx, a.styleCmd, code)
	if err != nil {
		return Diagnostics{}, err
	}
	if lintToolFailed(exitCode, out) {
		return Diagnostics{}, fmt.Errorf("%w: lint container exited with %d", ErrToolUnavailable, exitCode)
	}
	return classifyToolOutput(out), nil
}

// HealthCheck pings the docker daemon.
func (a *DockerAnalyzer) HealthCheck(ctx context.Context) error {
	if _, err := a.docker.Ping(ctx); err != nil {
		return fmt.Errorf("docker ping failed: %w", err)
	}
	return nil
}

// Close releases the docker client.
func (a *DockerAnalyzer) Close() error {
	return a.docker.Close()
}

func (a *DockerAnalyzer) run(ctx context.Context, argv []string, code string) (string, int, error) {
	var (
		output   string
		exitCode int
	)

	// only this call's staging dir is visible to the container
	err := withStagingDir(a.tempDir, func(dir string) error {
		return withTempSource(dir, code, func(path string) error {
			var err error
			output, exitCode, err = a.runContainer(ctx, argv, dir, filepath.Base(path))
			return err
		})
	})
	if err != nil {
		if !errors.Is(err, ErrToolUnavailable) {
			err = fmt.Errorf("%w: %v", ErrToolUnavailable, err)
		}
		return "", 0, err
	}

	return output, exitCode, nil
}

// runContainer runs argv against file, mounting dir read-only as the
// container's working directory.
func (a *DockerAnalyzer) runContainer(ctx context.Context, argv []string, dir, file string) (string, int, error) {
	// bind mounts need an absolute host path
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", 0, fmt.Errorf("failed to resolve staging dir: %w", err)
	}
	cmd := append(append([]string{}, argv...), containerWorkDir+"/"+file)

	containerConfig := &container.Config{
		Image:           a.image,
		Cmd:             cmd,
		WorkingDir:      containerWorkDir,
		NetworkDisabled: true,
		Labels: map[string]string{
			"code-validator.managed": "true",
		},
	}

	pids := int64(64)
	hostConfig := &container.HostConfig{
		Binds: []string{dir + ":" + containerWorkDir + ":ro"},
		Resources: container.Resources{
			Memory:    256 * 1024 * 1024,
			NanoCPUs:  1_000_000_000,
			PidsLimit: &pids,
		},
		NetworkMode:    "none",
		ReadonlyRootfs: true,
		RestartPolicy: container.RestartPolicy{
			Name: container.RestartPolicyDisabled,
		},
	}

	resp, err := a.docker.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, "")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create container: %w", err)
	}
	defer a.removeContainer(resp.ID)

	if err := a.docker.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", 0, fmt.Errorf("failed to start container: %w", err)
	}

	var exitCode int
	statusCh, errCh := a.docker.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return "", 0, fmt.Errorf("failed to wait for container: %w", err)
		}
	case status := <-statusCh:
		if status.Error != nil {
			return "", 0, fmt.Errorf("container wait error: %s", status.Error.Message)
		}
		exitCode = int(status.StatusCode)
	}

	logs, err := a.docker.ContainerLogs(ctx, resp.ID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return "", 0, fmt.Errorf("failed to read container logs: %w", err)
	}
	defer logs.Close()

	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, logs); err != nil {
		return "", 0, fmt.Errorf("failed to demultiplex container logs: %w", err)
	}
	return buf.String(), exitCode, nil
}

// removeContainer force-removes a finished container with its own context so
// cleanup still happens after the caller's deadline.
func (a *DockerAnalyzer) removeContainer(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultAnalyzerTimeout)
	defer cancel()
	if err := a.docker.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		slog.Warn("failed to remove analyzer container", "container", id, "error", err)
	}
}
