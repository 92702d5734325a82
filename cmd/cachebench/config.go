package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/jodogne/OrthancMirror-sub012/internal/util"
	"github.com/jodogne/OrthancMirror-sub012/log"
)

type InputConfig struct {
	LogDestination string `json:"log-destination"` // Stdout, stderr, or filepath.
	LogLevel       string `json:"log-level"`
	// Size values 10g, 128m, 1024k, 1000000b
	CacheBudget string `json:"cache-budget"`
	ValueSize   string `json:"value-size"`
	ArchiveSize int    `json:"archive-size"`
	Workers     int    `json:"workers"`
	Operations  int    `json:"operations"`
	Keys        int    `json:"keys"`
	MetricsAddr string `json:"metrics-addr"`
}

func DefaultInputConfig() *InputConfig {
	return &InputConfig{
		LogDestination: "stderr",
		LogLevel:       "INFO",
		CacheBudget:    "64m",
		ValueSize:      "64k",
		ArchiveSize:    16,
		Workers:        8,
		Operations:     100000,
		Keys:           4096,
		MetricsAddr:    "",
	}
}

type Config struct {
	LogDestination io.Writer
	LogLevel       log.Level
	CacheBudget    int64
	ValueSize      int64
	ArchiveSize    int
	Workers        int
	Operations     int
	Keys           int
	MetricsAddr    string
}

const usageHeader = `
Config values merge rules:
1) config file value overrides default
2) command line value overrides any
Options:
`

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s", usageHeader)
		flag.PrintDefaults()
	}
}

// config parses command flags, reads the config file if any, and returns the
// merged, parsed config.
func config() (*Config, error) {
	flg := parseFlags()
	fileConf := DefaultInputConfig()
	if flg.ConfigPath != "" {
		data, err := os.ReadFile(flg.ConfigPath)
		if err != nil {
			return nil, errors.Wrap(err, "config file read")
		}
		if err := json.Unmarshal(data, fileConf); err != nil {
			return nil, errors.Wrap(err, "config file parse")
		}
	}
	mergeConfigs(fileConf, &flg.InputConfig)
	return parseConfig(fileConf)
}

func parseConfig(in *InputConfig) (*Config, error) {
	parsed := &Config{
		ArchiveSize: in.ArchiveSize,
		Workers:     in.Workers,
		Operations:  in.Operations,
		Keys:        in.Keys,
		MetricsAddr: in.MetricsAddr,
	}
	var err error
	parsed.LogDestination, err = logDestination(in.LogDestination)
	if err != nil {
		return nil, errors.Wrap(err, "log destination open")
	}
	parsed.LogLevel, err = log.LevelFromString(strings.ToUpper(in.LogLevel))
	if err != nil {
		return nil, errors.Wrap(err, "log level parse")
	}
	parsed.CacheBudget, err = parseSize(in.CacheBudget)
	if err != nil {
		return nil, errors.Wrap(err, "cache budget parse")
	}
	parsed.ValueSize, err = parseSize(in.ValueSize)
	if err != nil {
		return nil, errors.Wrap(err, "value size parse")
	}
	if parsed.ValueSize > parsed.CacheBudget {
		return nil, errors.New("value size exceeds cache budget")
	}
	if parsed.Workers <= 0 || parsed.Operations <= 0 || parsed.Keys <= 0 {
		return nil, errors.New("workers, operations and keys must be positive")
	}
	return parsed, nil
}

type Flags struct {
	ConfigPath string
	InputConfig
}

func parseFlags() Flags {
	var f Flags
	flag.StringVar(&f.ConfigPath, "config", "", "path to json config")

	def := DefaultInputConfig()
	usage := func(usage string, defVal interface{}) string {
		if _, ok := defVal.(string); ok {
			return usage + fmt.Sprintf(" (default %q)", defVal)
		}
		return usage + fmt.Sprintf(" (default %v)", defVal)
	}
	flag.StringVar(&f.LogDestination, "log-destination", "", usage("log destination: stderr, stdout or file path", def.LogDestination))
	flag.StringVar(&f.LogLevel, "log-level", "", usage("log level: trace, info, warn, error", def.LogLevel))
	flag.StringVar(&f.CacheBudget, "cache-budget", "", usage("cache byte budget: 2g, 64m", def.CacheBudget))
	flag.StringVar(&f.ValueSize, "value-size", "", usage("size of generated values: 64k, 1m", def.ValueSize))
	flag.IntVar(&f.ArchiveSize, "archive-size", 0, usage("shared archive capacity", def.ArchiveSize))
	flag.IntVar(&f.Workers, "workers", 0, usage("concurrent workers", def.Workers))
	flag.IntVar(&f.Operations, "operations", 0, usage("total operations", def.Operations))
	flag.IntVar(&f.Keys, "keys", 0, usage("distinct keys", def.Keys))
	flag.StringVar(&f.MetricsAddr, "metrics-addr", "", usage("address of the Prometheus /metrics endpoint; empty disables it", def.MetricsAddr))
	flag.Parse()
	return f
}

func parseSize(s string) (int64, error) {
	if len(s) < 2 {
		return 0, errors.New("invalid size format")
	}
	sep := len(s) - 1
	sizeStr := s[:sep]
	var exponent uint
	switch strings.ToLower(s[sep:]) {
	case "b":
		exponent = 0
	case "k":
		exponent = 10
	case "m":
		exponent = 20
	case "g":
		exponent = 30
	default:
		return 0, errors.New("invalid exponent, only 'b', 'k', 'm', 'g' allowed")
	}
	size, err := strconv.ParseInt(sizeStr, 10, 31)
	if err != nil {
		return 0, errors.Wrap(err, "size parse")
	}
	return size << exponent, nil
}

func logDestination(dest string) (io.Writer, error) {
	switch strings.ToLower(dest) {
	case "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	}
	return os.OpenFile(dest, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

// mergeConfigs overwrites def values with non-zero override values.
func mergeConfigs(def, override *InputConfig) {
	defVal := reflect.ValueOf(def).Elem()
	overrideVal := reflect.ValueOf(override).Elem()
	for i, end := 0, defVal.NumField(); i < end; i++ {
		field := overrideVal.Field(i)
		if !util.IsZero(field.Interface()) {
			defVal.Field(i).Set(field)
		}
	}
}
