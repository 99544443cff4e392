package main

import "testing"

func TestResolveMetricsBackend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		flagValue string
		envValue  string
		want      string
	}{
		{"flag wins over env", "datadog", "none", "datadog"},
		{"env fallback when flag empty", "", "datadog", "datadog"},
		{"explicit none disables despite env", "none", "datadog", "none"},
		{"both empty disables", "", "", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := resolveMetricsBackend(tt.flagValue, tt.envValue); got != tt.want {
				t.Errorf("resolveMetricsBackend(%q, %q) = %q, want %q", tt.flagValue, tt.envValue, got, tt.want)
			}
		})
	}
}
