package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"

	"github.com/chazu/exprgraph/pkg/errwrap"
)

func TestLoadDefaults(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, path := range []string{"", "/etc/exprgraph.yaml"} {
		c, err := Load(fs, path)
		if err != nil {
			t.Fatalf("Load(%q): %v", path, err)
		}
		if c.Timeout() != DefaultEvalTimeout {
			t.Errorf("timeout = %s, want %s", c.Timeout(), DefaultEvalTimeout)
		}
		if *c.Precision != DefaultPrecision {
			t.Errorf("precision = %d, want %d", *c.Precision, DefaultPrecision)
		}
		if *c.LogPrefix != DefaultLogPrefix {
			t.Errorf("log prefix = %q", *c.LogPrefix)
		}
	}
}

func TestLoadFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	data := `
eval_timeout: 1500ms
precision: 0
metrics_listen: 127.0.0.1:9999
log_prefix: ""
`
	if err := afero.WriteFile(fs, "/cfg.yaml", []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(fs, "/cfg.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Timeout() != 1500*time.Millisecond {
		t.Errorf("timeout = %s", c.Timeout())
	}
	if *c.Precision != 0 {
		t.Errorf("explicit zero precision was replaced by %d", *c.Precision)
	}
	if c.MetricsListen != "127.0.0.1:9999" {
		t.Errorf("metrics_listen = %q", c.MetricsListen)
	}
	if *c.LogPrefix != "" {
		t.Errorf("explicit empty log prefix was replaced by %q", *c.LogPrefix)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		substr []string
	}{
		{"bad duration", "eval_timeout: soon\n", []string{"invalid config"}},
		{"unknown field", "colour: red\n", []string{"colour"}},
		{"aggregated", "eval_timeout: -1s\nprecision: 40\n", []string{"eval_timeout", "precision"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			if err := afero.WriteFile(fs, "/cfg.yaml", []byte(tt.data), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(fs, "/cfg.yaml")
			if err == nil {
				t.Fatal("expected an error")
			}
			for _, s := range tt.substr {
				if !strings.Contains(err.Error(), s) {
					t.Errorf("error %q does not mention %q", err, s)
				}
			}
		})
	}
}

func TestValidateAggregates(t *testing.T) {
	p := 99
	c := &Config{EvalTimeout: Duration(-time.Second), Precision: &p}
	if n := len(errwrap.Flatten(c.Validate())); n != 2 {
		t.Errorf("Validate reported %d problems, want 2", n)
	}
}

func TestDurationRoundTrip(t *testing.T) {
	out, err := yaml.Marshal(Default())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(out), "eval_timeout: 5s") {
		t.Errorf("marshalled config:\n%s", out)
	}
	c := &Config{}
	if err := c.Parse(out); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Timeout() != DefaultEvalTimeout {
		t.Errorf("timeout = %s", c.Timeout())
	}
}
