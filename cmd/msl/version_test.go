package main

import "testing"

// TestVersionInfo_LdflagsPriority tests that ldflags values win over
// build info fallbacks. Mutates package variables, so no t.Parallel.
func TestVersionInfo_LdflagsPriority(t *testing.T) {
	origVersion, origCommit, origDate := version, commit, date
	t.Cleanup(func() {
		version, commit, date = origVersion, origCommit, origDate
	})

	version, commit, date = "1.2.3", "abcdef1234", "2026-08-26T00:00:00Z"

	if got := getVersion(); got != "1.2.3" {
		t.Errorf("getVersion() = %q, want 1.2.3", got)
	}
	if got := getCommit(); got != "abcdef1234" {
		t.Errorf("getCommit() = %q, want the ldflags value untruncated", got)
	}
	if got := getDate(); got != "2026-08-26T00:00:00Z" {
		t.Errorf("getDate() = %q, want the ldflags value", got)
	}
}

// TestVersionInfo_Fallbacks tests the values used when ldflags are
// absent. In a test binary there is usually no VCS info, so the
// fallback strings are the interesting part.
func TestVersionInfo_Fallbacks(t *testing.T) {
	origVersion, origCommit, origDate := version, commit, date
	t.Cleanup(func() {
		version, commit, date = origVersion, origCommit, origDate
	})

	version, commit, date = "", "", ""

	if got := getVersion(); got == "" {
		t.Error("getVersion() should never be empty")
	}
	if got := getCommit(); got == "" {
		t.Error("getCommit() should never be empty")
	}
	if got := getDate(); got == "" {
		t.Error("getDate() should never be empty")
	}
}
