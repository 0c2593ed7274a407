package checksum

import "testing"

func TestETag(t *testing.T) {
	got := ETag([]byte("abc"))
	want := `"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"`
	if got != want {
		t.Errorf("ETag = %s, want %s", got, want)
	}
}

func TestMatches(t *testing.T) {
	etag := ETag([]byte("abc"))
	tests := []struct {
		header string
		want   bool
	}{
		{"", false},
		{etag, true},
		{"W/" + etag, true},
		{`"other", ` + etag, true},
		{"*", true},
		{`"other"`, false},
	}
	for _, tt := range tests {
		if got := Matches(tt.header, etag); got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}
