package shared

import (
	"strings"
	"testing"

	"github.com/urfave/cli/v3"
)

func TestGetBaseDescription(t *testing.T) {
	t.Parallel()

	desc := GetBaseDescription()

	for _, proto := range []string{"tcp", "ws", "udp"} {
		if !strings.Contains(desc, proto) {
			t.Errorf("description should mention %s protocol", proto)
		}
	}
}

func TestGetArgsUsage(t *testing.T) {
	t.Parallel()

	if usage := GetArgsUsage(); !strings.Contains(usage, "transport") {
		t.Errorf("usage = %q, should mention transport", usage)
	}
}

func flagNames(flags []cli.Flag) map[string]bool {
	names := make(map[string]bool)
	for _, flag := range flags {
		if n := flag.Names(); len(n) > 0 {
			names[n[0]] = true
		}
	}
	return names
}

func TestFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		flags []cli.Flag
		want  []string
	}{
		{"common", GetCommonFlags(), []string{VerboseFlag, TimeoutFlag, LogFileFlag}},
		{"executor", GetExecutorFlags(), []string{ExecutorFlag, WorkersFlag, MaxConnsFlag, AdmissionFlag, AdmissionTimeoutFlag, EscalateFlag, SleepOnErrorsFlag}},
		{"serve", GetServeFlags(), []string{HandlerFlag, NoDelayFlag, ReusePortFlag, KeepAliveFlag}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			names := flagNames(tt.flags)
			if len(names) != len(tt.want) {
				t.Errorf("got %d flags, want %d", len(names), len(tt.want))
			}
			for _, name := range tt.want {
				if !names[name] {
					t.Errorf("expected flag %q not found", name)
				}
			}
		})
	}
}

func TestFlagNamesUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	var all []cli.Flag
	all = append(all, GetCommonFlags()...)
	all = append(all, GetExecutorFlags()...)
	all = append(all, GetServeFlags()...)

	for _, flag := range all {
		for _, name := range flag.Names() {
			if seen[name] {
				t.Errorf("flag name or alias %q used twice", name)
			}
			seen[name] = true
		}
	}
}
