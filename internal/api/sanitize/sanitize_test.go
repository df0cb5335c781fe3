package sanitize

import "testing"

func TestHeadline(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "  Flash -20% today  ", want: "Flash -20% today"},
		{name: "script removed", input: `Promo<script>alert(1)</script>`, want: "Promo"},
		{name: "tags stripped", input: `<b>Big</b> <a href="http://x">sale</a>`, want: "Big sale"},
		{name: "whitespace collapsed", input: "Wax\n\n dress   deal", want: "Wax dress deal"},
		{name: "empty", input: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Headline(tt.input); got != tt.want {
				t.Fatalf("Headline(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestHeadlinePtr(t *testing.T) {
	if HeadlinePtr(nil) != nil {
		t.Fatalf("expected nil for nil input")
	}
	blank := "<i></i>"
	if HeadlinePtr(&blank) != nil {
		t.Fatalf("expected nil for markup-only input")
	}
	value := "Soldes"
	got := HeadlinePtr(&value)
	if got == nil || *got != "Soldes" {
		t.Fatalf("unexpected result %v", got)
	}
}

func TestText(t *testing.T) {
	if got := Text(` <x> `); got != "&lt;x&gt;" {
		t.Fatalf("unexpected escape result %q", got)
	}
}
