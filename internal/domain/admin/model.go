package admin

import "github.com/swasthya/healthcard/internal/domain/emergency"

// Summary holds the dashboard KPIs.
type Summary struct {
	TotalUsers     int                    `json:"total_users"`
	TotalPatients  int                    `json:"total_patients"`
	TotalProviders int                    `json:"total_providers"`
	TotalProfiles  int                    `json:"total_profiles"`
	TotalRecords   int                    `json:"total_records"`
	RecentAccesses []*emergency.AccessLog `json:"recent_accesses"`
}
