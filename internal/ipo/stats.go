package ipo

import "strings"

// Package code the appliance assigns to users with no license entitlement.
const unlicensedPackage = "8"

// UserStats is the per-appliance licensing summary cached by the console.
type UserStats struct {
	TotalUsers    int            `json:"totalUsers"`
	LicensedCount int            `json:"licensedCount"`
	PackageCounts map[string]int `json:"packageCounts"`
}

// ComputeUserStats folds a raw user-list response into per-package counts
// and a licensed total. Users with a blank package are counted in the total
// but excluded from both the package breakdown and the licensed count.
func ComputeUserStats(raw string) UserStats {
	parsed := ParseEnvelope(raw, recordKeyUser)

	stats := UserStats{
		TotalUsers:    len(parsed.Records),
		PackageCounts: map[string]int{},
	}

	for _, user := range parsed.Records {
		pkg := strings.TrimSpace(user["assignedPackage"])
		if pkg == "" {
			continue
		}
		stats.PackageCounts[pkg]++
		if pkg != unlicensedPackage {
			stats.LicensedCount++
		}
	}

	return stats
}
