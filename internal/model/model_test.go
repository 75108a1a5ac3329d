package model

import "testing"

func TestDownloadProgressString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		p    DownloadProgress
		want string
	}{
		{DownloadProgress{DownloadedOperations: 1, TotalOperations: 3, DownloadedFraction: 1.0 / 3}, "1/3 (33.33%)"},
		{DownloadProgress{DownloadedOperations: 2, TotalOperations: 3, DownloadedFraction: 2.0 / 3}, "2/3 (66.67%)"},
		{DownloadProgress{DownloadedOperations: 10, TotalOperations: 10, DownloadedFraction: 1}, "10/10 (100.00%)"},
		{DownloadProgress{}, "0/0 (0.00%)"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Fatalf("String() = %q, want %q", got, tt.want)
		}
	}
}
