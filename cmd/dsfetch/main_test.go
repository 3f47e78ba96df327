package main

import (
	"strings"
	"testing"
)

func TestRootCmd_RejectsBadInvocations(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"fetch without task", []string{"fetch"}, "accepts between 1 and 3 arg(s)"},
		{"fetch with extra args", []string{"fetch", "a", "b", "c", "d"}, "accepts between 1 and 3 arg(s)"},
		{"list with extra args", []string{"list", "a", "b", "c"}, "accepts at most 2 arg(s)"},
		{"zero workers", []string{"fetch", "denoising", "--workers", "0"}, "--workers must be at least 1"},
		{"unknown state", []string{"status", "--state", "Bogus"}, `unknown state "Bogus"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd()
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Execute(%v) = %v, want error containing %q", tt.args, err, tt.want)
			}
		})
	}
}
