package store

import "testing"

func TestGlobToLike(t *testing.T) {
	cases := []struct {
		name    string
		pattern string
		want    string
	}{
		{"star becomes percent", "ethereum:bridge:*:IN", `ethereum:bridge:%:IN`},
		{"no wildcard passes through", "locks:update_getlogs", "locks:update_getlogs"},
		{"escapes literal percent", "100%:done", `100\%:done`},
		{"escapes literal underscore", "a_b:*", `a\_b:%`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := globToLike(tc.pattern)
			if got != tc.want {
				t.Fatalf("globToLike(%q) = %q, want %q", tc.pattern, got, tc.want)
			}
		})
	}
}

func TestCursorKey(t *testing.T) {
	got := cursorKey("ethereum", "bridge", "0xabc", "MAX_BLOCK_STORED")
	want := "ethereum:bridge:0xabc:MAX_BLOCK_STORED"
	if got != want {
		t.Fatalf("cursorKey = %q, want %q", got, want)
	}
}
