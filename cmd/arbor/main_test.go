package main

import (
	"reflect"
	"testing"
)

func TestRewriteDirectNodeLookupArgs(t *testing.T) {
	t.Parallel()

	const id = "6f1d3c52-0b8e-4d55-9a3b-2f0c1c7e9a10"

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"arbor"},
			want: []string{"arbor"},
		},
		{
			name: "direct node id first token",
			in:   []string{"arbor", id},
			want: []string{"arbor", "nodes", "show", id},
		},
		{
			name: "direct node id after value flag",
			in:   []string{"arbor", "--data-dir", "./tmp-data", id},
			want: []string{"arbor", "--data-dir", "./tmp-data", "nodes", "show", id},
		},
		{
			name: "direct node id after equals flag",
			in:   []string{"arbor", "--format=yaml", id},
			want: []string{"arbor", "--format=yaml", "nodes", "show", id},
		},
		{
			name: "direct node id after bool flag",
			in:   []string{"arbor", "--pretty", id},
			want: []string{"arbor", "--pretty", "nodes", "show", id},
		},
		{
			name: "direct node id after double dash",
			in:   []string{"arbor", "--data-dir", "./tmp-data", "--", id},
			want: []string{"arbor", "--data-dir", "./tmp-data", "--", "nodes", "show", id},
		},
		{
			name: "trailing flags kept after the id",
			in:   []string{"arbor", id, "--render"},
			want: []string{"arbor", "nodes", "show", id, "--render"},
		},
		{
			name: "normal subcommand not rewritten",
			in:   []string{"arbor", "nodes", "show", id},
			want: []string{"arbor", "nodes", "show", id},
		},
		{
			name: "non-uuid not rewritten",
			in:   []string{"arbor", "wat"},
			want: []string{"arbor", "wat"},
		},
		{
			name: "flag value that looks like an id is not rewritten",
			in:   []string{"arbor", "--config", id},
			want: []string{"arbor", "--config", id},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := rewriteDirectNodeLookupArgs(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("rewriteDirectNodeLookupArgs:\n got: %#v\nwant: %#v", got, tt.want)
			}
		})
	}
}
