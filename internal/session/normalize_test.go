package session

import "testing"

func TestOptionIndex(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{name: "numeric zero", raw: "0", want: 0},
		{name: "numeric", raw: "3", want: 3},
		{name: "numeric with spaces", raw: " 2 ", want: 2},
		{name: "uppercase letter", raw: "A", want: 0},
		{name: "uppercase letter D", raw: "D", want: 3},
		{name: "lowercase letter", raw: "c", want: 2},
		{name: "letter with spaces", raw: " b ", want: 1},
		{name: "empty", raw: "", wantErr: true},
		{name: "blank", raw: "   ", wantErr: true},
		{name: "negative", raw: "-1", wantErr: true},
		{name: "multi letter", raw: "AB", wantErr: true},
		{name: "punctuation", raw: "?", wantErr: true},
		{name: "mixed", raw: "1a", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OptionIndex(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("OptionIndex(%q) = %d, want error", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("OptionIndex(%q): %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("OptionIndex(%q) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}
