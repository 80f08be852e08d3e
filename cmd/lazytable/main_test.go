package main

import (
	"flag"
	"testing"
)

func TestMergeLogLevel(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"flag absent keeps configured level", nil, "warn"},
		{"flag overrides configured level", []string{"-log-level", "debug"}, "debug"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("lazytable", flag.ContinueOnError)
			fs.String("log-level", "info", "")
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("parse: %v", err)
			}

			cfg := defaultConfig()
			cfg.Log.Level = "warn"
			mergeLogLevel(&cfg, fs)

			if cfg.Log.Level != tt.want {
				t.Errorf("log level = %q, want %q", cfg.Log.Level, tt.want)
			}
		})
	}
}
