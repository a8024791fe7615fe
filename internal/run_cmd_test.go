package internal

import (
	"strings"
	"testing"
)

func TestRunCmd_FlagValidation(t *testing.T) {
	tests := []struct {
		name          string
		args          []string
		expectedError string
	}{
		{
			name:          "No output directory",
			args:          []string{"run"},
			expectedError: "Missing target: provide the site directory with --output-dir",
		},
		{
			name:          "--push without --save-results",
			args:          []string{"run", "--output-dir", "site", "--push"},
			expectedError: "Invalid flag combination: --push requires --save-results",
		},
		{
			name:          "--results-dir without --save-results",
			args:          []string{"run", "--output-dir", "site", "--results-dir", "snapshots"},
			expectedError: "Invalid flag combination: --results-dir requires --save-results",
		},
		{
			name:          "Broken conference filter",
			args:          []string{"run", "--output-dir", "site", "--save-results", "--conf-regex", "["},
			expectedError: "Invalid conference filter",
		},
	}

	root := NewRootCmd()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root.SetArgs(tt.args)
			_, err := root.ExecuteC()

			if err == nil {
				t.Fatalf("expected error, got nil")
			}

			if !strings.Contains(err.Error(), "already logged") {
				t.Errorf("expected sentinel error, got: %v", err)
			}
		})
	}
}
