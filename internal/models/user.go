package models

// UserRole represents the roles issued by the civic backend.
type UserRole string

const (
	RoleClient     UserRole = "client"
	RoleWorker     UserRole = "worker"
	RoleAdmin      UserRole = "admin"
	RoleSuperAdmin UserRole = "super_admin"
)

// IsStaff reports whether the role moderates issues.
func (r UserRole) IsStaff() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// UserProfile is the caller's profile as returned by the backend.
type UserProfile struct {
	ID       int64    `json:"id"`
	FullName string   `json:"full_name"`
	Email    string   `json:"email"`
	Role     UserRole `json:"role"`
	District string   `json:"district,omitempty"`
	Pincode  string   `json:"pincode,omitempty"`
	IsActive bool     `json:"is_active"`
}

// WorkerProfile is a worker eligible for assignment.
type WorkerProfile struct {
	ID             int64       `json:"id"`
	User           UserProfile `json:"user"`
	Department     *Department `json:"department,omitempty"`
	DailyTaskCount int         `json:"daily_task_count"`
}

// Session couples an upstream access token with the resolved caller.
type Session struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	Profile     UserProfile `json:"profile"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
