package reservation

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		path string
		cwd  string
		want string
	}{
		{"absolute file", "/repo/file.ts", "", "/repo/file.ts"},
		{"absolute dir", "/repo/dir/", "", "/repo/dir/"},
		{"backslashes", `C:\repo\file.ts`, "", "C:/repo/file.ts"},
		{"collapse slashes", "/repo//dir///file.ts", "", "/repo/dir/file.ts"},
		{"trim whitespace", "  /repo/file.ts  ", "", "/repo/file.ts"},
		{"relative resolved against cwd", "file.ts", "/repo", "/repo/file.ts"},
		{"relative dir resolved against cwd", "dir/", "/repo", "/repo/dir/"},
		{"empty is invalid", "", "/repo", ""},
		{"dir reduces to root", "/", "", "/"},
		{"bare slash is directory", "/", "/repo", "/"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Normalize(c.path, c.cwd)
			if got != c.want {
				t.Errorf("Normalize(%q, %q) = %q, want %q", c.path, c.cwd, got, c.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"/repo/file.ts", "/repo/dir/", `C:\repo\dir\`, "/a//b/c/"}
	for _, in := range inputs {
		once := Normalize(in, "")
		twice := Normalize(once, "")
		if once != twice {
			t.Errorf("renormalizing %q gave %q then %q", in, once, twice)
		}
	}
}

func TestOverlap(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		want bool
	}{
		{"identical files", "/repo/file.ts", "/repo/file.ts", true},
		{"different files", "/repo/a.ts", "/repo/b.ts", false},
		{"dir subsumes nested file", "/repo/dir/", "/repo/dir/sub/file.ts", true},
		{"nested file vs dir, symmetric", "/repo/dir/sub/file.ts", "/repo/dir/", true},
		{"dir equals itself without slash", "/repo/dir/", "/repo/dir", true},
		{"sibling dirs do not overlap", "/repo/dir/", "/repo/dirx/", false},
		{"unrelated dirs", "/repo/a/", "/repo/b/", false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Overlap(c.a, c.b)
			if got != c.want {
				t.Errorf("Overlap(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
			}
		})
	}
}

func TestDedup(t *testing.T) {
	got := Dedup([]string{"/a", "/b", "/a", "/c", "/b"})
	want := []string{"/a", "/b", "/c"}
	if len(got) != len(want) {
		t.Fatalf("Dedup returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Dedup()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
