// Package config loads the vidarrbuild.json build configuration and the
// options of the vidarr-build driver.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables read by DefaultBuildOptions.
const (
	EnvTestConfig = "VIDARR_TEST_CONFIG"
	EnvURLs       = "VIDARR_URLS"
)

// File names used by the build driver.
const (
	DefaultBuildConfig  = "vidarrbuild.json"
	BundleFile          = "v.out"
	RegressionTestFile  = "vidarrtest-regression.json"
	PerformanceTestFile = "vidarrtest-performance.json"
)

// BuildConfig is the content of vidarrbuild.json.
type BuildConfig struct {
	// Names are the workflow names the bundle is deployed as.
	Names []string `yaml:"names"`
	// WDL is the root workflow file, relative to the config file.
	WDL string `yaml:"wdl"`

	// Dir is the directory holding the config file.
	Dir string `yaml:"-"`
}

// BuildOptions holds the command-line options of vidarr-build.
type BuildOptions struct {
	ConfigPath      string   // build config (default "vidarrbuild.json")
	TestConfig      string   // Vidarr plugin configuration for tests
	PerformanceTest bool     // also run vidarrtest-performance.json
	URLs            []string // servers given with --url
	URLFile         string   // file listing servers, one per line
	Version         string   // version to register
}

// DefaultBuildOptions returns defaults, taking the test configuration from
// the environment.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		ConfigPath: DefaultBuildConfig,
		TestConfig: os.Getenv(EnvTestConfig),
	}
}

// LoadBuild reads and validates a build config. JSON is read with the YAML
// decoder, so YAML configs are accepted as well.
func LoadBuild(path string) (*BuildConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("cannot find %s. Are you in the right directory?", path)
		}
		return nil, fmt.Errorf("read build config: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse build config %s: %w", path, err)
	}

	cfg := &BuildConfig{Dir: filepath.Dir(path)}
	names, ok := raw["names"].([]any)
	if !ok || len(names) == 0 {
		return nil, errors.New("the `names` property must be present in the configuration file and contain a list of workflow names for deployment")
	}
	for _, n := range names {
		s, ok := n.(string)
		if !ok {
			return nil, errors.New("the `names` property must be present in the configuration file and contain a list of workflow names for deployment")
		}
		cfg.Names = append(cfg.Names, s)
	}

	w, present := raw["wdl"]
	if !present {
		return nil, errors.New("the configuration file must have exactly one root workflow")
	}
	if cfg.WDL, ok = w.(string); !ok {
		return nil, errors.New("the `wdl` property must contain the name of the root workflow file")
	}
	return cfg, nil
}

// WorkflowPath returns the root workflow file, checking that it exists.
func (c *BuildConfig) WorkflowPath() (string, error) {
	p := filepath.Join(c.Dir, c.WDL)
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("cannot find %s", p)
	}
	return p, nil
}

// TestFiles returns the test files beside the config, checking that each
// exists.
func (c *BuildConfig) TestFiles(performance bool) ([]string, error) {
	files := []string{filepath.Join(c.Dir, RegressionTestFile)}
	if performance {
		files = append(files, filepath.Join(c.Dir, PerformanceTestFile))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return nil, fmt.Errorf("cannot find %s containing required tests", f)
		}
	}
	return files, nil
}

// ServerURLs collects the Vidarr servers to deploy to: the --url values,
// then the lines of --url-file, else the space-separated VIDARR_URLS.
// Blank entries are skipped.
func (o BuildOptions) ServerURLs() ([]string, error) {
	var urls []string
	for _, u := range o.URLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	if o.URLFile != "" {
		f, err := os.Open(o.URLFile)
		if err != nil {
			return nil, fmt.Errorf("read url file: %w", err)
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if u := strings.TrimSpace(scanner.Text()); u != "" {
				urls = append(urls, u)
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read url file: %w", err)
		}
	}
	if len(urls) == 0 {
		urls = strings.Fields(os.Getenv(EnvURLs))
	}
	if len(urls) == 0 {
		return nil, errors.New("cannot perform a deployment without a Vidarr server to update; use --url or set " + EnvURLs)
	}
	for i, u := range urls {
		urls[i] = strings.TrimRight(u, "/")
	}
	return urls, nil
}
