package models

import "time"

// ClientDistrictStats summarises issues in the citizen's district.
type ClientDistrictStats struct {
	DistrictName    string         `json:"district_name"`
	TotalProblems   int            `json:"total_problems"`
	StatusBreakdown map[string]int `json:"status_breakdown"`
	TypeBreakdown   map[string]int `json:"type_breakdown"`
}

// AdminStats is the backend's analytics summary for administrators.
type AdminStats struct {
	TotalProblems              int      `json:"total_problems"`
	PendingProblems            int      `json:"pending_problems"`
	AssignedProblems           int      `json:"assigned_problems"`
	CompletedProblems          int      `json:"completed_problems"`
	VerifiedProblems           int      `json:"verified_problems"`
	AverageResolutionTimeHours *float64 `json:"average_resolution_time_hours,omitempty"`
}

// WorkerSelfStats is the backend's summary of a worker's own throughput.
type WorkerSelfStats struct {
	WorkerName     string   `json:"worker_name"`
	TasksCompleted int      `json:"tasks_completed"`
	AverageRating  *float64 `json:"average_rating,omitempty"`
}

// IssueBreakdown is computed locally from the caller's issue view.
type IssueBreakdown struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	ByPriority map[string]int `json:"by_priority"`
}

// Dashboard is the role-scoped dashboard payload.
type Dashboard struct {
	Role        UserRole             `json:"role"`
	Client      *ClientDistrictStats `json:"client,omitempty"`
	Admin       *AdminStats          `json:"admin,omitempty"`
	Worker      *WorkerSelfStats     `json:"worker,omitempty"`
	Breakdown   IssueBreakdown       `json:"breakdown"`
	GeneratedAt time.Time            `json:"generated_at"`
}
