package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func wantErrContains(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error containing %q, got nil", want)
	}
	if !strings.Contains(err.Error(), want) {
		t.Errorf("error %q does not contain %q", err, want)
	}
}

func TestLoadBuild(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "vidarrbuild.json", `{"names": ["bcl2fastq", "bcl2fastq_v2"], "wdl": "bcl2fastq.wdl"}`)

	cfg, err := LoadBuild(p)
	if err != nil {
		t.Fatalf("LoadBuild: %v", err)
	}
	if want := []string{"bcl2fastq", "bcl2fastq_v2"}; !reflect.DeepEqual(cfg.Names, want) {
		t.Errorf("Names = %v, want %v", cfg.Names, want)
	}
	if cfg.WDL != "bcl2fastq.wdl" {
		t.Errorf("WDL = %q", cfg.WDL)
	}
	if cfg.Dir != dir {
		t.Errorf("Dir = %q, want %q", cfg.Dir, dir)
	}

	_, err = cfg.WorkflowPath()
	wantErrContains(t, err, "cannot find")

	writeFile(t, dir, "bcl2fastq.wdl", "version 1.0\n")
	wf, err := cfg.WorkflowPath()
	if err != nil {
		t.Fatalf("WorkflowPath: %v", err)
	}
	if want := filepath.Join(dir, "bcl2fastq.wdl"); wf != want {
		t.Errorf("WorkflowPath = %q, want %q", wf, want)
	}
}

func TestLoadBuild_YAML(t *testing.T) {
	p := writeFile(t, t.TempDir(), "vidarrbuild.yaml", "names:\n  - wf\nwdl: wf.wdl\n")
	cfg, err := LoadBuild(p)
	if err != nil {
		t.Fatalf("LoadBuild: %v", err)
	}
	if !reflect.DeepEqual(cfg.Names, []string{"wf"}) {
		t.Errorf("Names = %v", cfg.Names)
	}
}

func TestLoadBuild_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no names", `{"wdl": "a.wdl"}`, "`names` property"},
		{"empty names", `{"names": [], "wdl": "a.wdl"}`, "`names` property"},
		{"names not strings", `{"names": [1], "wdl": "a.wdl"}`, "`names` property"},
		{"names not list", `{"names": "wf", "wdl": "a.wdl"}`, "`names` property"},
		{"no workflow", `{"names": ["wf"]}`, "exactly one root workflow"},
		{"workflow not string", `{"names": ["wf"], "wdl": 3}`, "`wdl` property"},
		{"malformed", `{"names": [`, "parse build config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeFile(t, t.TempDir(), "vidarrbuild.json", tt.content)
			_, err := LoadBuild(p)
			wantErrContains(t, err, tt.want)
		})
	}
}

func TestLoadBuild_Missing(t *testing.T) {
	_, err := LoadBuild(filepath.Join(t.TempDir(), "vidarrbuild.json"))
	wantErrContains(t, err, "Are you in the right directory?")
}

func TestTestFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := &BuildConfig{Dir: dir}

	_, err := cfg.TestFiles(false)
	wantErrContains(t, err, RegressionTestFile)

	writeFile(t, dir, RegressionTestFile, "[]")
	files, err := cfg.TestFiles(false)
	if err != nil {
		t.Fatalf("TestFiles: %v", err)
	}
	if want := []string{filepath.Join(dir, RegressionTestFile)}; !reflect.DeepEqual(files, want) {
		t.Errorf("TestFiles = %v, want %v", files, want)
	}

	_, err = cfg.TestFiles(true)
	wantErrContains(t, err, PerformanceTestFile)
}

func TestTestFiles_RelativeDir(t *testing.T) {
	chdir(t, t.TempDir())
	writeFile(t, ".", RegressionTestFile, "[]")
	writeFile(t, ".", PerformanceTestFile, "[]")

	files, err := (&BuildConfig{Dir: filepath.Dir(DefaultBuildConfig)}).TestFiles(true)
	if err != nil {
		t.Fatalf("TestFiles: %v", err)
	}
	if want := []string{RegressionTestFile, PerformanceTestFile}; !reflect.DeepEqual(files, want) {
		t.Errorf("TestFiles = %v, want %v", files, want)
	}
}

func TestServerURLs(t *testing.T) {
	urlFile := writeFile(t, t.TempDir(), "urls.txt", "http://b:8080/\n\n  http://c:8080  \n")

	t.Run("flags then file", func(t *testing.T) {
		t.Setenv(EnvURLs, "http://env:8080")
		urls, err := BuildOptions{URLs: []string{"http://a:8080", ""}, URLFile: urlFile}.ServerURLs()
		if err != nil {
			t.Fatalf("ServerURLs: %v", err)
		}
		if want := []string{"http://a:8080", "http://b:8080", "http://c:8080"}; !reflect.DeepEqual(urls, want) {
			t.Errorf("ServerURLs = %v, want %v", urls, want)
		}
	})

	t.Run("environment fallback", func(t *testing.T) {
		t.Setenv(EnvURLs, " http://x:1  http://y:2 ")
		urls, err := BuildOptions{}.ServerURLs()
		if err != nil {
			t.Fatalf("ServerURLs: %v", err)
		}
		if want := []string{"http://x:1", "http://y:2"}; !reflect.DeepEqual(urls, want) {
			t.Errorf("ServerURLs = %v, want %v", urls, want)
		}
	})

	t.Run("none", func(t *testing.T) {
		t.Setenv(EnvURLs, "")
		_, err := BuildOptions{}.ServerURLs()
		wantErrContains(t, err, "without a Vidarr server")
	})
}

func TestDefaultBuildOptions(t *testing.T) {
	t.Setenv(EnvTestConfig, "/etc/vidarr/test.json")
	opts := DefaultBuildOptions()
	if opts.ConfigPath != DefaultBuildConfig {
		t.Errorf("ConfigPath = %q", opts.ConfigPath)
	}
	if opts.TestConfig != "/etc/vidarr/test.json" {
		t.Errorf("TestConfig = %q", opts.TestConfig)
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
