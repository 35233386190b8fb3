package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateQuery_EmptyAndWhitespace(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"spaces", "   "},
		{"tab", "\t"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateQuery(tc.input, 1, 100)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrEmpty) {
				t.Errorf("error = %v, want ErrEmpty", err)
			}
		})
	}
}

func TestValidateQuery_TooShort(t *testing.T) {
	_, err := ValidateQuery("x", 2, 100)
	if !errors.Is(err, ErrTooShort) {
		t.Errorf("error = %v, want ErrTooShort", err)
	}
}

func TestValidateQuery_TooLong(t *testing.T) {
	long := strings.Repeat("a", 101)
	_, err := ValidateQuery(long, 1, 100)
	if !errors.Is(err, ErrTooLong) {
		t.Errorf("error = %v, want ErrTooLong", err)
	}
}

func TestValidateQuery_InvalidChars(t *testing.T) {
	tests := []string{"sea/ttle", "sea\\ttle", "sea?ttle", "sea#ttle", "sea\x00ttle", "sea%ttle", "sea&ttle"}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			if _, err := ValidateQuery(in, 1, 100); !errors.Is(err, ErrInvalidChars) {
				t.Errorf("error = %v, want ErrInvalidChars", err)
			}
		})
	}
}

func TestValidateQuery_Valid(t *testing.T) {
	tests := []struct{ input, want string }{
		{"Seattle", "Seattle"},
		{"New York", "New York"},
		{"London,uk", "London,uk"},
		{"Some-City", "Some-City"},
		{"  Boston  ", "Boston"},
		{"Zürich", "Zürich"},
		{"Area51", "Area51"},
		{"O'Brien's Point", "O'Brien's Point"},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ValidateQuery(tc.input, 1, 100)
			if err != nil {
				t.Fatalf("ValidateQuery() err = %v", err)
			}
			if got != tc.want {
				t.Errorf("normalized = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestValidateQuery_LengthBoundaries(t *testing.T) {
	got, err := ValidateQuery("ab", 2, 100)
	if err != nil || got != "ab" {
		t.Fatalf("min boundary: got %q, err %v", got, err)
	}
	s100 := strings.Repeat("a", 100)
	got, err = ValidateQuery(s100, 1, 100)
	if err != nil || len([]rune(got)) != 100 {
		t.Fatalf("max boundary: got len %d, err %v", len(got), err)
	}
	if _, err = ValidateQuery(s100+"a", 1, 100); !errors.Is(err, ErrTooLong) {
		t.Errorf("over max: err = %v, want ErrTooLong", err)
	}
}

func TestClampLimit(t *testing.T) {
	cases := []struct {
		n, def, min, max, want int
	}{
		{0, 5, 1, 20, 5},
		{-3, 5, 1, 20, 1},
		{100, 5, 1, 20, 20},
		{7, 5, 1, 20, 7},
	}
	for _, c := range cases {
		if got := ClampLimit(c.n, c.def, c.min, c.max); got != c.want {
			t.Errorf("ClampLimit(%d,%d,%d,%d) = %d, want %d", c.n, c.def, c.min, c.max, got, c.want)
		}
	}
}

func TestValidateLanguage(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "en", false},
		{"EN", "en", false},
		{"nb", "nb", false},
		{" NN ", "nn", false},
		{"fr", "", true},
	}
	for _, tc := range tests {
		got, err := ValidateLanguage(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidLang) {
				t.Errorf("ValidateLanguage(%q) err = %v, want ErrInvalidLang", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ValidateLanguage(%q) = (%q, %v), want (%q, nil)", tc.in, got, err, tc.want)
		}
	}
}
