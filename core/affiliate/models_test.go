package affiliate

import (
	"strings"
	"testing"
)

func Test_newCode(t *testing.T) {
	courseID := "7f9c3e1a-8b2d-4c5e-9f0a-1b2c3d4e5f6a"

	code, err := newCode(courseID)
	if err != nil {
		t.Fatalf("newCode() failed: %v", err)
	}

	wantPrefix := strings.ToUpper(courseID) + "-"
	if !strings.HasPrefix(code, wantPrefix) {
		t.Errorf("newCode() = %q, want prefix %q", code, wantPrefix)
	}
	suffix := code[len(wantPrefix):]
	if len(suffix) != codeSuffixLen {
		t.Errorf("suffix length = %d, want %d", len(suffix), codeSuffixLen)
	}
	for _, c := range suffix {
		if !strings.ContainsRune(codeAlphabet, c) {
			t.Errorf("suffix %q contains %q, not in alphabet", suffix, c)
		}
	}
}

func Test_newCode_unique(t *testing.T) {
	courseID := "7f9c3e1a-8b2d-4c5e-9f0a-1b2c3d4e5f6a"

	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		code, err := newCode(courseID)
		if err != nil {
			t.Fatalf("newCode() failed: %v", err)
		}
		if _, ok := seen[code]; ok {
			t.Fatalf("duplicate code %q after %d generations", code, i)
		}
		seen[code] = struct{}{}
	}
}

func Test_codeCoursePart(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"uuid course", "7F9C3E1A-8B2D-4C5E-9F0A-1B2C3D4E5F6A-XK3M9", "7F9C3E1A-8B2D-4C5E-9F0A-1B2C3D4E5F6A"},
		{"simple course", "GO101-ABCDE", "GO101"},
		{"no separator", "ABCDE", ""},
		{"leading separator only", "-ABCDE", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := codeCoursePart(tt.code); got != tt.want {
				t.Errorf("codeCoursePart(%q) = %q, want %q", tt.code, got, tt.want)
			}
		})
	}
}

func TestCourseLink(t *testing.T) {
	got := CourseLink("http://localhost:3000/", "go-101", "GO-101-XK3M9")
	want := "http://localhost:3000/course/go-101?ref=GO-101-XK3M9"
	if got != want {
		t.Errorf("CourseLink() = %q, want %q", got, want)
	}
}
