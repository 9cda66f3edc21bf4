package platform

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func fixedNamer(dir string) *Namer {
	ts := time.Unix(1700000000, 0)
	return &Namer{Dir: dir, Ext: FinalExt, Now: func() time.Time { return ts }}
}

func create(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestTempName_DeterministicWithFixedClock(t *testing.T) {
	n := fixedNamer(t.TempDir())

	a, err := n.TempName("https://example.com/v", "137", "Title")
	if err != nil {
		t.Fatal(err)
	}
	b, err := n.TempName("https://example.com/v", "137", "Title")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("expected same name for same inputs, got %s and %s", a, b)
	}

	base := filepath.Base(a)
	if !strings.HasPrefix(base, TempPrefix) || !strings.HasSuffix(base, FinalExt) {
		t.Errorf("unexpected temp name shape: %s", base)
	}
	if !IsTempName(base) {
		t.Errorf("IsTempName rejected generated name %s", base)
	}
	token := strings.TrimSuffix(strings.TrimPrefix(base, TempPrefix), FinalExt)
	if token != TempToken("https://example.com/v", "137", "Title", 1700000000) {
		t.Errorf("token mismatch: %s", token)
	}
}

func TestTempName_AvoidsCollisions(t *testing.T) {
	dir := t.TempDir()
	n := fixedNamer(dir)

	first, err := n.TempName("u", "18", "T")
	if err != nil {
		t.Fatal(err)
	}
	create(t, first)

	second, err := n.TempName("u", "18", "T")
	if err != nil {
		t.Fatal(err)
	}
	if second == first {
		t.Fatal("expected a different name when the first is taken")
	}

	// the partial variant also blocks the name
	create(t, second+PartSuffix)
	third, err := n.TempName("u", "18", "T")
	if err != nil {
		t.Fatal(err)
	}
	if third == first || third == second {
		t.Errorf("expected a fresh name, got %s", third)
	}
}

func TestUniqueFinalName_IncreasingSuffix(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	n := fixedNamer(dir)

	want := []string{"Clip.mp4", "Clip_2.mp4", "Clip_3.mp4"}
	for _, w := range want {
		got, err := n.UniqueFinalName("Clip", false)
		if err != nil {
			t.Fatal(err)
		}
		if filepath.Base(got) != w {
			t.Fatalf("expected %s, got %s", w, filepath.Base(got))
		}
		create(t, got)
	}
}

func TestUniqueFinalName_Redownload(t *testing.T) {
	dir := t.TempDir()
	n := fixedNamer(dir)
	create(t, filepath.Join(dir, "Clip.mp4"))

	got, err := n.UniqueFinalName("Clip", true)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(got) != "Clip_copy.mp4" {
		t.Errorf("expected Clip_copy.mp4, got %s", filepath.Base(got))
	}
	create(t, got)

	got, err = n.UniqueFinalName("Clip", true)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(got) != "Clip_copy_2.mp4" {
		t.Errorf("expected Clip_copy_2.mp4, got %s", filepath.Base(got))
	}
}

func TestFindExistingSimilarFile(t *testing.T) {
	dir := t.TempDir()
	n := fixedNamer(dir)
	create(t, filepath.Join(dir, "temp_0123456789ab.mp4"))
	create(t, filepath.Join(dir, "My Song notes.txt"))

	if _, ok := n.FindExistingSimilarFile("My Song"); ok {
		t.Fatal("temp files and other extensions must be ignored")
	}

	create(t, filepath.Join(dir, "My Song_2.webm"))
	path, ok := n.FindExistingSimilarFile("My Song")
	if !ok || filepath.Base(path) != "My Song_2.webm" {
		t.Errorf("expected webm match, got %q %v", path, ok)
	}
}

func TestFindExistingSimilarFile_MissingDir(t *testing.T) {
	n := fixedNamer(filepath.Join(t.TempDir(), "missing"))
	if _, ok := n.FindExistingSimilarFile("x"); ok {
		t.Error("expected no match in a missing directory")
	}
}

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Plain Title", "Plain Title"},
		{"a/b\\c", "a_b_c"},
		{"what? <yes>|no", "what_ _yes__no"},
		{"  ..hidden.. ", "hidden"},
		{"", FallbackTitle},
		{"../..", "_"},
		{"tab\there", "tab_here"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SanitizeTitle(tt.in); got != tt.want {
				t.Errorf("SanitizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeTitle_Truncates(t *testing.T) {
	long := strings.Repeat("я", MaxTitleRunes+20)
	if got := []rune(SanitizeTitle(long)); len(got) != MaxTitleRunes {
		t.Errorf("expected %d runes, got %d", MaxTitleRunes, len(got))
	}
}

func TestIsTempName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"temp_0123456789ab.mp4", true},
		{"temp_0123456789ab.mp4.part", true},
		{"temp_0123456789ab.m4a", true},
		{"temp_xyz.mp4", false},
		{"Clip.mp4", false},
		{"temp_0123456789abc.mp4", false},
	}
	for _, tt := range tests {
		if got := IsTempName(tt.name); got != tt.want {
			t.Errorf("IsTempName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
