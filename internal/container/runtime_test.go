package container

import (
	"errors"
	"strings"
	"testing"
)

// mockExecutor records calls and returns configured responses.
type mockExecutor struct {
	availableBins map[string]bool   // binary -> whether LookPath succeeds
	failCmds      map[string]bool   // "bin arg1 arg2" -> whether RunSilent fails
	output        map[string]string // "bin arg1 arg2" -> RunOutput stdout
	calls         []string
}

func (m *mockExecutor) LookPath(file string) (string, error) {
	if m.availableBins[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (m *mockExecutor) RunSilent(name string, args ...string) error {
	key := name + " " + strings.Join(args, " ")
	m.calls = append(m.calls, key)
	if m.failCmds[key] {
		return errors.New("command failed: " + key)
	}
	return nil
}

func (m *mockExecutor) RunOutput(name string, args ...string) (string, error) {
	key := name + " " + strings.Join(args, " ")
	m.calls = append(m.calls, key)
	if out, ok := m.output[key]; ok {
		return out, nil
	}
	return "", errors.New("command failed: " + key)
}

func TestDetectRuntime(t *testing.T) {
	tests := []struct {
		name     string
		exec     *mockExecutor
		wantName string
		wantErr  bool
	}{
		{
			name: "docker available",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true},
			},
			wantName: "docker",
		},
		{
			name: "podman fallback when docker missing",
			exec: &mockExecutor{
				availableBins: map[string]bool{"podman": true},
			},
			wantName: "podman",
		},
		{
			name: "neither available",
			exec: &mockExecutor{
				availableBins: map[string]bool{},
			},
			wantErr: true,
		},
		{
			name: "docker on PATH but info fails, podman works",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true, "podman": true},
				failCmds:      map[string]bool{"docker info": true},
			},
			wantName: "podman",
		},
		{
			name: "both available, docker preferred",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true, "podman": true},
			},
			wantName: "docker",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := detectRuntime(tt.exec)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), "no container runtime available") {
					t.Errorf("error should mention no runtime available, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rt.Name() != tt.wantName {
				t.Errorf("got runtime %q, want %q", rt.Name(), tt.wantName)
			}
		})
	}
}

func TestImageExists(t *testing.T) {
	tests := []struct {
		name    string
		mkRT    func(*mockExecutor) Runtime
		image   string
		fail    map[string]bool
		wantErr bool
	}{
		{
			name:  "docker image exists",
			mkRT:  func(e *mockExecutor) Runtime { return newDockerRuntime(e) },
			image: "stain/jena-fuseki",
		},
		{
			name:    "docker image not found",
			mkRT:    func(e *mockExecutor) Runtime { return newDockerRuntime(e) },
			image:   "stain/jena-fuseki",
			fail:    map[string]bool{"docker image inspect stain/jena-fuseki": true},
			wantErr: true,
		},
		{
			name:  "podman image exists",
			mkRT:  func(e *mockExecutor) Runtime { return newPodmanRuntime(e) },
			image: "stain/jena-fuseki",
		},
		{
			name:    "podman image not found",
			mkRT:    func(e *mockExecutor) Runtime { return newPodmanRuntime(e) },
			image:   "stain/jena-fuseki",
			fail:    map[string]bool{"podman image exists stain/jena-fuseki": true},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &mockExecutor{failCmds: tt.fail}
			rt := tt.mkRT(exec)
			err := rt.ImageExists(tt.image)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.image) {
					t.Errorf("error should mention image name, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestStart(t *testing.T) {
	spec := Spec{
		Image: "stain/jena-fuseki",
		Name:  "plasma-fuseki",
		Ports: []string{"3030:3030"},
		Env: map[string]string{
			"FUSEKI_DATASET_1": "plasma",
			"ADMIN_PASSWORD":   "admin123",
		},
	}
	want := "docker run -d --rm --name plasma-fuseki -p 3030:3030" +
		" -e ADMIN_PASSWORD=admin123 -e FUSEKI_DATASET_1=plasma stain/jena-fuseki"

	t.Run("builds the full run command", func(t *testing.T) {
		exec := &mockExecutor{}
		rt := newDockerRuntime(exec)
		if err := rt.Start(spec); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(exec.calls) != 1 {
			t.Fatalf("got %d commands, want 1: %v", len(exec.calls), exec.calls)
		}
		if exec.calls[0] != want {
			t.Errorf("got command\n  %s\nwant\n  %s", exec.calls[0], want)
		}
	})

	t.Run("failure returns wrapped error", func(t *testing.T) {
		exec := &mockExecutor{failCmds: map[string]bool{want: true}}
		rt := newDockerRuntime(exec)
		err := rt.Start(spec)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "plasma-fuseki") {
			t.Errorf("error should mention container name, got: %v", err)
		}
	})
}

func TestStop(t *testing.T) {
	exec := &mockExecutor{}
	rt := newPodmanRuntime(exec)
	if err := rt.Stop("plasma-fuseki"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := exec.calls[0], "podman stop plasma-fuseki"; got != want {
		t.Errorf("got command %q, want %q", got, want)
	}

	exec = &mockExecutor{failCmds: map[string]bool{"podman stop plasma-fuseki": true}}
	rt = newPodmanRuntime(exec)
	if err := rt.Stop("plasma-fuseki"); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestRunning(t *testing.T) {
	const psCmd = "docker ps --filter name=plasma-fuseki --format {{.Names}}"

	tests := []struct {
		name    string
		output  map[string]string
		want    bool
		wantErr bool
	}{
		{
			name:   "container up",
			output: map[string]string{psCmd: "plasma-fuseki\n"},
			want:   true,
		},
		{
			name:   "exact name among substring matches",
			output: map[string]string{psCmd: "plasma-fuseki-old\nplasma-fuseki\n"},
			want:   true,
		},
		{
			name:   "substring match only is not running",
			output: map[string]string{psCmd: "plasma-fuseki-old\n"},
			want:   false,
		},
		{
			name:   "no containers",
			output: map[string]string{psCmd: ""},
			want:   false,
		},
		{
			name:    "ps failure",
			output:  map[string]string{},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &mockExecutor{output: tt.output}
			rt := newDockerRuntime(exec)
			got, err := rt.Running("plasma-fuseki")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Running() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRuntimeName(t *testing.T) {
	exec := &mockExecutor{}
	docker := newDockerRuntime(exec)
	if docker.Name() != "docker" {
		t.Errorf("docker runtime name = %q, want %q", docker.Name(), "docker")
	}
	podman := newPodmanRuntime(exec)
	if podman.Name() != "podman" {
		t.Errorf("podman runtime name = %q, want %q", podman.Name(), "podman")
	}
}
