package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tongsgo/tongs/history"
	"github.com/tongsgo/tongs/model"
)

func TestRemoveFirstDashDash(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "empty slice",
			in:   []string{},
			want: []string{},
		},
		{
			name: "starts with --",
			in:   []string{"--", "-http=:8080", "-top"},
			want: []string{"-http=:8080", "-top"},
		},
		{
			name: "no --",
			in:   []string{"-http=:8080", "-top"},
			want: []string{"-http=:8080", "-top"},
		},
		{
			name: "only --",
			in:   []string{"--"},
			want: []string{},
		},
		{
			name: "-- in middle",
			in:   []string{"-top", "--", "-http=:8080"},
			want: []string{"-top", "--", "-http=:8080"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, removeFirstDashDash(tt.in))
		})
	}
}

func TestParseViewArgs(t *testing.T) {
	tests := []struct {
		name          string
		in            []string
		wantID        string
		wantPprofArgs []string
	}{
		{
			name:          "empty args - default to 0",
			in:            []string{},
			wantID:        "0",
			wantPprofArgs: nil,
		},
		{
			name:          "only ID - index 0",
			in:            []string{"0"},
			wantID:        "0",
			wantPprofArgs: []string{},
		},
		{
			name:          "only ID - negative index",
			in:            []string{"-1"},
			wantID:        "-1",
			wantPprofArgs: []string{},
		},
		{
			name:          "only ID - hex string",
			in:            []string{"abc123"},
			wantID:        "abc123",
			wantPprofArgs: []string{},
		},
		{
			name:          "only pprof args",
			in:            []string{"-http=:8080"},
			wantID:        "0",
			wantPprofArgs: []string{"-http=:8080"},
		},
		{
			name:          "ID with pprof args",
			in:            []string{"0", "-http=:8080"},
			wantID:        "0",
			wantPprofArgs: []string{"-http=:8080"},
		},
		{
			name:          "ID with -- separator and pprof args",
			in:            []string{"0", "--", "-http=:8080", "-top"},
			wantID:        "0",
			wantPprofArgs: []string{"-http=:8080", "-top"},
		},
		{
			name:          "negative index with -- and pprof args",
			in:            []string{"-1", "--", "-top"},
			wantID:        "-1",
			wantPprofArgs: []string{"-top"},
		},
		{
			name:          "hex ID with pprof args no separator",
			in:            []string{"abc123", "-list=main"},
			wantID:        "abc123",
			wantPprofArgs: []string{"-list=main"},
		},
		{
			name:          "only -- uses default 0",
			in:            []string{"--", "-http=:8080"},
			wantID:        "0",
			wantPprofArgs: []string{"-http=:8080"},
		},
		{
			name:          "negative index with multiple pprof args",
			in:            []string{"-2", "-http=:8080", "-nodefraction=0.1"},
			wantID:        "-2",
			wantPprofArgs: []string{"-http=:8080", "-nodefraction=0.1"},
		},
		{
			name:          "ID 0 with -- and multiple pprof args",
			in:            []string{"0", "--", "-http=:8080", "-top", "-cum"},
			wantID:        "0",
			wantPprofArgs: []string{"-http=:8080", "-top", "-cum"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotID, gotPprofArgs := parseViewArgs(tt.in)
			require.Equal(t, tt.wantID, gotID)
			require.Equal(t, tt.wantPprofArgs, gotPprofArgs)
		})
	}
}

func TestSelectEntry(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	entries := []history.Entry{
		{Run: model.Run{ID: "bbbb1111-0000", Timestamp: t0.Add(time.Hour)}},
		{Run: model.Run{ID: "aaaa2222-0000", Timestamp: t0}},
	}

	tests := []struct {
		name    string
		arg     string
		wantID  string
		wantErr string
	}{
		{name: "last", arg: "0", wantID: "bbbb1111-0000"},
		{name: "second to last", arg: "-1", wantID: "aaaa2222-0000"},
		{name: "out of range", arg: "-2", wantErr: "out of range"},
		{name: "positive index", arg: "1", wantErr: "invalid index"},
		{name: "id prefix", arg: "AAAA", wantID: "aaaa2222-0000"},
		{name: "unknown id", arg: "cccc", wantErr: "no run"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := selectEntry(entries, tt.arg)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantID, entry.Run.ID)
		})
	}

	_, err := selectEntry(nil, "0")
	require.ErrorContains(t, err, "no runs recorded")
}
