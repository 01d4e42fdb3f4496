// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package container detects a local container runtime and manages the
// Fuseki triple store container the pipeline publishes to.
package container

import (
	"fmt"
	"os/exec"
	"sort"
	"strings"
)

const (
	binDocker = "docker"
	binPodman = "podman"
)

// Spec describes a long-running container to start.
type Spec struct {
	// Image is the container image, e.g. "stain/jena-fuseki".
	Image string

	// Name identifies the container for Stop and Running.
	Name string

	// Ports lists host:container publish pairs, e.g. "3030:3030".
	Ports []string

	// Env holds environment variables passed to the container.
	Env map[string]string
}

// Runtime provides container operations: checking availability, verifying
// images, and managing long-running containers.
type Runtime interface {
	// Name returns the runtime name ("docker" or "podman").
	Name() string

	// Available reports whether the runtime binary exists on PATH and
	// responds to an info command.
	Available() bool

	// ImageExists checks whether the named image exists locally.
	// Returns nil when the image is found, or an error describing the failure.
	ImageExists(image string) error

	// Start runs a detached container from spec. The container is removed
	// when it stops.
	Start(spec Spec) error

	// Stop stops the named container.
	Stop(name string) error

	// Running reports whether a container with the given name is up.
	Running(name string) (bool, error)
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunSilent(name string, args ...string) error
	RunOutput(name string, args ...string) (string, error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) RunSilent(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

func (o *osExecutor) RunOutput(name string, args ...string) (string, error) {
	out, err := exec.Command(name, args...).Output()
	return string(out), err
}

// runtime implements Runtime for a specific container binary. Docker and
// Podman share the same CLI surface; they differ only in binary name and
// the subcommand used to check image existence.
type runtime struct {
	bin           string
	imageCheckCmd []string // e.g. ["image", "inspect"] for docker
	exec          executor
}

func (r *runtime) Name() string { return r.bin }

func (r *runtime) Available() bool {
	if _, err := r.exec.LookPath(r.bin); err != nil {
		return false
	}
	return r.exec.RunSilent(r.bin, "info") == nil
}

func (r *runtime) ImageExists(image string) error {
	args := make([]string, 0, len(r.imageCheckCmd)+1)
	args = append(args, r.imageCheckCmd...)
	args = append(args, image)

	if err := r.exec.RunSilent(r.bin, args...); err != nil {
		return fmt.Errorf("image %s not found in %s: %w", image, r.bin, err)
	}
	return nil
}

func (r *runtime) Start(spec Spec) error {
	args := []string{"run", "-d", "--rm", "--name", spec.Name}
	for _, p := range spec.Ports {
		args = append(args, "-p", p)
	}
	// Env keys sorted for a stable command line.
	keys := make([]string, 0, len(spec.Env))
	for k := range spec.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-e", k+"="+spec.Env[k])
	}
	args = append(args, spec.Image)

	if err := r.exec.RunSilent(r.bin, args...); err != nil {
		return fmt.Errorf("starting %s container %s: %w", r.bin, spec.Name, err)
	}
	return nil
}

func (r *runtime) Stop(name string) error {
	if err := r.exec.RunSilent(r.bin, "stop", name); err != nil {
		return fmt.Errorf("stopping container %s: %w", name, err)
	}
	return nil
}

func (r *runtime) Running(name string) (bool, error) {
	out, err := r.exec.RunOutput(r.bin, "ps", "--filter", "name="+name, "--format", "{{.Names}}")
	if err != nil {
		return false, fmt.Errorf("listing containers: %w", err)
	}
	// The name filter matches substrings, so compare whole lines.
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == name {
			return true, nil
		}
	}
	return false, nil
}

func newDockerRuntime(exec executor) *runtime {
	return &runtime{
		bin:           binDocker,
		imageCheckCmd: []string{"image", "inspect"},
		exec:          exec,
	}
}

func newPodmanRuntime(exec executor) *runtime {
	return &runtime{
		bin:           binPodman,
		imageCheckCmd: []string{"image", "exists"},
		exec:          exec,
	}
}

var defaultExec = &osExecutor{}

// DetectRuntime tries docker first, falls back to podman. Returns an error
// if neither runtime is available.
func DetectRuntime() (Runtime, error) {
	return detectRuntime(defaultExec)
}

func detectRuntime(exec executor) (Runtime, error) {
	docker := newDockerRuntime(exec)
	if docker.Available() {
		return docker, nil
	}

	podman := newPodmanRuntime(exec)
	if podman.Available() {
		return podman, nil
	}

	return nil, fmt.Errorf(
		"no container runtime available: neither %s nor %s found or operational",
		binDocker, binPodman,
	)
}
