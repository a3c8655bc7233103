package commands

import (
	"errors"
	"os"
	"testing"

	"github.com/spf13/afero"
)

func TestVirtualDirectory_Chdir(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll("/root/packages/one", 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	dir := NewVirtualDirectory(fs, "/root/")

	wd, _ := dir.Getwd()
	if wd != "/root" {
		t.Fatalf("Getwd() = %q, want /root", wd)
	}

	if err := dir.Chdir("packages/one"); err != nil {
		t.Fatalf("Chdir relative: %v", err)
	}
	wd, _ = dir.Getwd()
	if wd != "/root/packages/one" {
		t.Errorf("Getwd() = %q, want /root/packages/one", wd)
	}

	if err := dir.Chdir("/root"); err != nil {
		t.Fatalf("Chdir absolute: %v", err)
	}
	wd, _ = dir.Getwd()
	if wd != "/root" {
		t.Errorf("Getwd() = %q, want /root", wd)
	}
}

func TestVirtualDirectory_ChdirMissing(t *testing.T) {
	dir := NewVirtualDirectory(afero.NewMemMapFs(), "/root")

	err := dir.Chdir("nope")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}

	wd, _ := dir.Getwd()
	if wd != "/root" {
		t.Errorf("failed Chdir must not move the directory, got %q", wd)
	}
}

func TestNewResponse(t *testing.T) {
	tests := []struct {
		name      string
		outcome   Outcome
		wantInfo  int
		wantError int
	}{
		{"success", Success{Output: "out"}, 1, 0},
		{"unavailable", Unavailable{Message: "missing"}, 0, 1},
		{"failure", Failure{Message: "Error: boom"}, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := NewResponse("pkg", tt.outcome)
			if len(resp.Logs.Info) != tt.wantInfo {
				t.Errorf("info = %v, want %d entries", resp.Logs.Info, tt.wantInfo)
			}
			if len(resp.Logs.Error) != tt.wantError {
				t.Errorf("error = %v, want %d entries", resp.Logs.Error, tt.wantError)
			}
			if resp.Logs.Info == nil || resp.Logs.Error == nil {
				t.Error("log channels must be non-nil")
			}
		})
	}
}
