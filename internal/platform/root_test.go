package platform

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindRoot(t *testing.T) {
	// base/
	//   vault/ (.memosync)
	//     2024/
	//       03/
	//   project/ (memosync.yaml)
	//     sub/
	//   empty/
	baseDir := t.TempDir()
	vaultDir := filepath.Join(baseDir, "vault")
	monthDir := filepath.Join(vaultDir, "2024", "03")
	projectDir := filepath.Join(baseDir, "project")
	subDir := filepath.Join(projectDir, "sub")
	emptyDir := filepath.Join(baseDir, "empty")

	for _, d := range []string{monthDir, subDir, emptyDir, filepath.Join(vaultDir, ".memosync")} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(projectDir, "memosync.yaml"), []byte("sync:\n  dir: notes\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		startPath string
		wantRoot  string
		wantErr   bool
	}{
		{name: "system dir at start", startPath: vaultDir, wantRoot: vaultDir},
		{name: "system dir above", startPath: monthDir, wantRoot: vaultDir},
		{name: "config file above", startPath: subDir, wantRoot: projectDir},
		{name: "no root", startPath: emptyDir, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindRoot(tt.startPath)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FindRoot() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if filepath.Clean(got) != filepath.Clean(tt.wantRoot) {
				t.Errorf("FindRoot() = %v, want %v", got, tt.wantRoot)
			}
		})
	}
}
