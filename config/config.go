// Package config loads the .locsmith.yaml project configuration and
// auto-detects project layout when no config file exists.
//
// When a .locsmith.yaml file is present in the project root it is the
// sole source of truth: master/derived store paths and pattern tables
// come from it. Without one, the project is probed for the conventional
// Xcode layout (*.lproj/Localizable.strings) and the built-in Swift rule
// tables are used.
//
// The configuration is an immutable value passed explicitly into the
// scanner, classifier, and sync engine — there is no process-wide state.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cat-xierluo/locsmith/classify"
)

// FileName is the default config file name.
const FileName = ".locsmith.yaml"

// Config is the top-level .locsmith.yaml structure.
type Config struct {
	// SourceDirs are directories scanned recursively for source files.
	SourceDirs []string `yaml:"source_dirs,omitempty"`
	// SourceFiles are explicit source paths added to the file set.
	SourceFiles []string `yaml:"source_files,omitempty"`
	// Extensions filter walked files (default ".swift").
	Extensions []string `yaml:"extensions,omitempty"`
	// ExcludeFiles are glob patterns; matching files are skipped.
	ExcludeFiles []string `yaml:"exclude_files,omitempty"`

	// MasterStrings is the path to the master locale store — the source
	// of truth for key existence. Required.
	MasterStrings string `yaml:"master_strings"`
	// DerivedStrings maps locale code → store path for every derived store.
	DerivedStrings map[string]string `yaml:"derived_strings,omitempty"`

	// UIPatterns override the built-in positive patterns.
	UIPatterns []string `yaml:"ui_patterns,omitempty"`
	// AvoidPatterns override the built-in avoidance patterns.
	AvoidPatterns []string `yaml:"avoid_patterns,omitempty"`
	// MinLength is the minimum localizable literal length (default 3).
	MinLength int `yaml:"min_length,omitempty"`

	// BackupSuffix is appended to a file path to form its backup path
	// (default ".backup").
	BackupSuffix string `yaml:"backup_suffix,omitempty"`

	// Root is the directory the config was loaded from (not serialized).
	Root string `yaml:"-"`
}

// Load reads .locsmith.yaml from rootDir. Returns (nil, nil) when the
// file does not exist. A malformed or invalid config is fatal: the run
// must abort before any file is touched.
func Load(rootDir string) (*Config, error) {
	path := filepath.Join(rootDir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.Root = rootDir
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// Detect probes rootDir for the conventional Xcode localization layout
// and returns a configuration using the built-in rule tables. The master
// store preference order follows the original workflow: zh-Hans if
// present, otherwise the first detected store.
func Detect(rootDir string) *Config {
	cfg := &Config{Root: rootDir}
	cfg.applyDefaults()

	stores := findLprojStores(rootDir)
	if len(stores) > 0 {
		master := ""
		if p, ok := stores["zh-Hans"]; ok {
			master = p
		} else {
			var langs []string
			for lang := range stores {
				langs = append(langs, lang)
			}
			sort.Strings(langs)
			master = stores[langs[0]]
		}
		cfg.MasterStrings = master

		cfg.DerivedStrings = make(map[string]string)
		for lang, p := range stores {
			if p != master {
				cfg.DerivedStrings[lang] = p
			}
		}
	}

	// Default source dirs: directories that contain .lproj bundles, or
	// conventional source roots.
	for _, candidate := range []string{"Sources", "src"} {
		dir := filepath.Join(rootDir, candidate)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			cfg.SourceDirs = append(cfg.SourceDirs, dir)
		}
	}
	if len(cfg.SourceDirs) == 0 {
		cfg.SourceDirs = []string{rootDir}
	}

	return cfg
}

func (c *Config) applyDefaults() {
	if len(c.Extensions) == 0 {
		c.Extensions = []string{".swift"}
	}
	if c.MinLength == 0 {
		c.MinLength = classify.DefaultMinLength
	}
	if c.BackupSuffix == "" {
		c.BackupSuffix = ".backup"
	}
	if c.Root != "" {
		c.MasterStrings = resolvePath(c.Root, c.MasterStrings)
		for lang, p := range c.DerivedStrings {
			c.DerivedStrings[lang] = resolvePath(c.Root, p)
		}
		for i, d := range c.SourceDirs {
			c.SourceDirs[i] = resolvePath(c.Root, d)
		}
		for i, f := range c.SourceFiles {
			c.SourceFiles[i] = resolvePath(c.Root, f)
		}
	}
}

func resolvePath(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// Validate checks the configuration for fatal problems.
func (c *Config) Validate() error {
	if c.MasterStrings == "" {
		return fmt.Errorf("master_strings is required")
	}
	if len(c.SourceDirs) == 0 && len(c.SourceFiles) == 0 {
		return fmt.Errorf("at least one of source_dirs or source_files is required")
	}
	if c.MinLength < 0 {
		return fmt.Errorf("min_length must be non-negative")
	}
	for lang, p := range c.DerivedStrings {
		if p == "" {
			return fmt.Errorf("derived_strings[%s] has an empty path", lang)
		}
		if p == c.MasterStrings {
			return fmt.Errorf("derived_strings[%s] points at the master store", lang)
		}
	}
	// Pattern compilation errors are configuration errors, caught here
	// rather than mid-scan.
	if _, err := c.Ruleset(); err != nil {
		return err
	}
	return nil
}

// Ruleset compiles the configured (or default) classification rules.
func (c *Config) Ruleset() (*classify.Ruleset, error) {
	return classify.NewRuleset(classify.Options{
		UIPatterns:    c.UIPatterns,
		AvoidPatterns: c.AvoidPatterns,
		MinLength:     c.MinLength,
	})
}

// Languages returns the derived locale codes, sorted.
func (c *Config) Languages() []string {
	var langs []string
	for lang := range c.DerivedStrings {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// findLprojStores locates <lang>.lproj/Localizable.strings files under
// rootDir and maps locale code → path.
func findLprojStores(rootDir string) map[string]string {
	stores := make(map[string]string)
	filepath.Walk(rootDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			name := info.Name()
			if name == ".git" || name == "node_modules" || name == "Pods" {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Name() != "Localizable.strings" {
			return nil
		}
		parent := filepath.Base(filepath.Dir(p))
		if strings.HasSuffix(parent, ".lproj") {
			lang := strings.TrimSuffix(parent, ".lproj")
			if _, exists := stores[lang]; !exists {
				stores[lang] = p
			}
		}
		return nil
	})
	return stores
}
