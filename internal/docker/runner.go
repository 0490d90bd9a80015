// Package docker runs workflow steps inside containers via the Docker
// Engine API. Each step executes as a short-lived container of the
// job's image with the workspace bind-mounted at /workspace.
package docker

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/containerd/errdefs"
	"github.com/google/uuid"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/client"

	kexec "github.com/kestrelci/kestrel/internal/exec"
)

// WorkspaceMount is where the project workspace appears inside step
// containers.
const WorkspaceMount = "/workspace"

// Runner implements exec.CommandRunner against a Docker engine.
type Runner struct {
	client *client.Client
	// image is the container image steps run in.
	image string
	// workspace is the host path bind-mounted at WorkspaceMount.
	workspace string
	// runID labels created containers so stale ones can be traced back.
	runID string
	// pulled avoids re-pulling the image for every step.
	pulled bool
}

// NewRunner initializes a Docker-backed runner. Client configuration
// comes from environment variables (e.g. DOCKER_HOST); a non-empty host
// overrides them.
func NewRunner(image, workspace, runID, host string) (*Runner, error) {
	opts := []client.Opt{client.FromEnv}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	c, err := client.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	return &Runner{client: c, image: image, workspace: workspace, runID: runID}, nil
}

// Close releases the underlying client connection.
func (r *Runner) Close() error {
	return r.client.Close()
}

// Run executes the command in a fresh container: create, start, stream
// logs, wait, remove. The container is force-removed even on failure.
func (r *Runner) Run(ctx context.Context, cmd kexec.Command, stdout, stderr io.Writer) (int, error) {
	shell := cmd.Shell
	if shell == "" {
		shell = "sh"
	}
	workDir := WorkspaceMount
	if cmd.Dir != "" {
		workDir = path.Join(WorkspaceMount, cmd.Dir)
	}

	cCfg := &container.Config{
		Image:      r.image,
		Cmd:        []string{shell, "-c", cmd.Script},
		Env:        cmd.Env,
		WorkingDir: workDir,
		Labels: map[string]string{
			"kestrel.run": r.runID,
		},
	}
	hCfg := &container.HostConfig{
		Mounts: []mount.Mount{
			{
				Type:   mount.TypeBind,
				Source: r.workspace,
				Target: WorkspaceMount,
			},
		},
		RestartPolicy: container.RestartPolicy{
			Name: container.RestartPolicyDisabled,
		},
	}

	name := fmt.Sprintf("kestrel-%s-%s", r.runID, uuid.New().String()[:8])

	created, err := r.client.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config:     cCfg,
		HostConfig: hCfg,
		Name:       name,
		Image:      r.image,
	})
	if err != nil {
		if !errdefs.IsNotFound(err) {
			return -1, fmt.Errorf("create container: %w", err)
		}
		// Image missing locally: pull and retry once.
		if pullErr := r.pullImage(ctx); pullErr != nil {
			return -1, pullErr
		}
		created, err = r.client.ContainerCreate(ctx, client.ContainerCreateOptions{
			Config:     cCfg,
			HostConfig: hCfg,
			Name:       name,
			Image:      r.image,
		})
		if err != nil {
			return -1, fmt.Errorf("create container after pull: %w", err)
		}
	}
	containerID := created.ID

	defer func() {
		// Removal uses a fresh context so cancelled steps still clean up.
		_, _ = r.client.ContainerRemove(context.WithoutCancel(ctx), containerID, client.ContainerRemoveOptions{
			Force:         true,
			RemoveVolumes: false,
		})
	}()

	if _, err := r.client.ContainerStart(ctx, containerID, client.ContainerStartOptions{}); err != nil {
		return -1, fmt.Errorf("start container %q: %w", name, err)
	}

	rc, err := r.client.ContainerLogs(ctx, containerID, client.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
		Timestamps: false,
		Since:      "0",
	})
	if err != nil {
		return -1, fmt.Errorf("logs container %q: %w", name, err)
	}
	defer rc.Close()

	logDone := make(chan error, 1)
	go func() {
		logDone <- DemuxLogs(stdout, stderr, rc)
	}()

	waitBody := r.client.ContainerWait(ctx, containerID, client.ContainerWaitOptions{})
	var statusCode int64
	select {
	case err := <-waitBody.Error:
		if err != nil {
			if ctx.Err() != nil {
				return -1, ctx.Err()
			}
			return -1, fmt.Errorf("wait container %q: %w", name, err)
		}
	case res := <-waitBody.Result:
		statusCode = res.StatusCode
	case <-ctx.Done():
		return -1, ctx.Err()
	}

	// The log stream ends when the container exits; surface anything
	// other than a clean EOF.
	if err := <-logDone; err != nil {
		return -1, fmt.Errorf("stream logs for %q: %w", name, err)
	}

	return int(statusCode), nil
}

func (r *Runner) pullImage(ctx context.Context) error {
	if r.pulled {
		return nil
	}
	rc, err := r.client.ImagePull(ctx, r.image, client.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %q: %w", r.image, err)
	}
	defer rc.Close()
	// Drain the progress stream; pull completes when it ends.
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("pull image %q: %w", r.image, err)
	}
	r.pulled = true
	return nil
}

// Verify Runner implements CommandRunner at compile time.
var _ kexec.CommandRunner = (*Runner)(nil)
