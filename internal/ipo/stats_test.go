package ipo

import (
	"fmt"
	"strings"
	"testing"
)

func userListBody(packages []string) string {
	entries := make([]string, len(packages))
	for i, pkg := range packages {
		entries[i] = fmt.Sprintf(`{"User":{"@GUID":"g%d","Name":"u%d","AssignedPackage":%q}}`, i, i, pkg)
	}
	return `{"response":{"@status":"1","data":{"ws_object":[` + strings.Join(entries, ",") + `]}}}`
}

func TestComputeUserStats(t *testing.T) {
	raw := userListBody([]string{"1", "1", "8", "", "3"})

	stats := ComputeUserStats(raw)

	if stats.TotalUsers != 5 {
		t.Errorf("TotalUsers = %d, want 5", stats.TotalUsers)
	}
	if stats.LicensedCount != 3 {
		t.Errorf("LicensedCount = %d, want 3", stats.LicensedCount)
	}

	wantCounts := map[string]int{"1": 2, "8": 1, "3": 1}
	if len(stats.PackageCounts) != len(wantCounts) {
		t.Errorf("PackageCounts = %v, want %v", stats.PackageCounts, wantCounts)
	}
	for pkg, want := range wantCounts {
		if stats.PackageCounts[pkg] != want {
			t.Errorf("PackageCounts[%q] = %d, want %d", pkg, stats.PackageCounts[pkg], want)
		}
	}
	if _, ok := stats.PackageCounts[""]; ok {
		t.Error("blank package must not appear in PackageCounts")
	}
}

func TestComputeUserStats_EmptyAndFailedResponses(t *testing.T) {
	for name, raw := range map[string]string{
		"ApplicationFailure": `{"response":{"@status":"0","data":{}}}`,
		"Garbage":            "not a payload",
	} {
		t.Run(name, func(t *testing.T) {
			stats := ComputeUserStats(raw)
			if stats.TotalUsers != 0 || stats.LicensedCount != 0 || len(stats.PackageCounts) != 0 {
				t.Errorf("expected zero stats, got %+v", stats)
			}
		})
	}
}
