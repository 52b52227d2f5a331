package path

import "testing"

func TestToRuntimePosix(t *testing.T) {
	cases := []struct {
		local   string
		dirHint bool
		want    string
	}{
		{"/usr/local/bin", false, "/usr/local/bin"},
		{"/usr//local///bin", false, "/usr/local/bin"},
		{"rel/path", false, "rel/path"},
		{"/etc", true, "/etc/"},
		{"/etc/", true, "/etc/"},
	}
	for _, c := range cases {
		if got := toRuntime(c.local, c.dirHint, false); got != c.want {
			t.Errorf("toRuntime(%q, %v) = %q, want %q", c.local, c.dirHint, got, c.want)
		}
	}
}

func TestToRuntimeWindowsDrive(t *testing.T) {
	cases := []struct {
		local   string
		dirHint bool
		want    string
	}{
		{`C:\foo\bar`, true, "/C/foo/bar/"},
		{`c:\`, false, "/c/"},
		{`C:foo`, false, "/Cfoo"},
		{`\\server\share`, false, "/server/share"},
		{`relative\sub`, false, "relative/sub"},
	}
	for _, c := range cases {
		if got := toRuntime(c.local, c.dirHint, true); got != c.want {
			t.Errorf("toRuntime(%q, %v) = %q, want %q", c.local, c.dirHint, got, c.want)
		}
	}
}

func TestToLocalPosix(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/usr/local/bin", "/usr/local/bin"},
		{"/a/./b", "/a/b"},
		{"/a/b/../c", "/a/c"},
		{"a/b/", "a/b/"},
		{"/", "/"},
		{".", "."},
	}
	for _, c := range cases {
		got, err := toLocal(c.path, false, false, "")
		if err != nil {
			t.Fatalf("toLocal(%q): %v", c.path, err)
		}
		if got != c.want {
			t.Errorf("toLocal(%q) = %q, want %q", c.path, got, c.want)
		}
	}
}

func TestToLocalDotDotUnderflow(t *testing.T) {
	got, err := toLocal("../x", false, false, "")
	if err != nil {
		t.Fatalf("toLocal: %v", err)
	}
	if got != "../x" {
		t.Fatalf("toLocal(../x) = %q, want ../x", got)
	}
}

func TestToLocalFullResolvesAgainstCwd(t *testing.T) {
	got, err := toLocal("sub/file", true, false, "/home/me")
	if err != nil {
		t.Fatalf("toLocal: %v", err)
	}
	if got != "/home/me/sub/file" {
		t.Fatalf("toLocal = %q, want /home/me/sub/file", got)
	}

	up, err := toLocal("../peer", true, false, "/home/me")
	if err != nil {
		t.Fatalf("toLocal: %v", err)
	}
	if up != "/home/peer" {
		t.Fatalf("toLocal = %q, want /home/peer", up)
	}
}

func TestToLocalWindows(t *testing.T) {
	got, err := toLocal("/C/foo/bar", false, true, "")
	if err != nil {
		t.Fatalf("toLocal: %v", err)
	}
	if got != `C:\foo\bar` {
		t.Fatalf("toLocal = %q, want C:\\foo\\bar", got)
	}
}

func TestRoundTripWindowsDirectory(t *testing.T) {
	rt := toRuntime(`C:\foo\bar`, true, true)
	if rt != "/C/foo/bar/" {
		t.Fatalf("toRuntime = %q, want /C/foo/bar/", rt)
	}
	back, err := toLocal(rt, false, true, "")
	if err != nil {
		t.Fatalf("toLocal: %v", err)
	}
	if back != `C:\foo\bar\` {
		t.Fatalf("round trip = %q, want C:\\foo\\bar\\", back)
	}
}

func TestWildcardMatch(t *testing.T) {
	cases := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"*", "anything", true},
		{"*.txt", "note.txt", true},
		{"*.txt", "note.txt.bak", false},
		{"a?c", "abc", true},
		{"a?c", "ac", false},
		{"*b*", "abc", true},
		{"", "", true},
		{"", "x", false},
		{"a*b*c", "axxbyyc", true},
		{"a*b*c", "axxbyy", false},
	}
	for _, c := range cases {
		if got := WildcardMatch(c.pattern, c.name); got != c.want {
			t.Errorf("WildcardMatch(%q, %q) = %v, want %v", c.pattern, c.name, got, c.want)
		}
	}
}

func TestHasWildcard(t *testing.T) {
	if !HasWildcard("*.r") || !HasWildcard("a?b") {
		t.Fatal("wildcard not detected")
	}
	if HasWildcard("plain.txt") {
		t.Fatal("false wildcard detection")
	}
}
