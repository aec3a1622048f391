package dto

// LeaderboardFilter narrows the leaderboard to one organization.
type LeaderboardFilter struct {
	OrganizationID *string `query:"organization_id" validate:"omitempty,max=64"`
}

// LeaderboardEntry is one ranked learner. It is derived on every request.
type LeaderboardEntry struct {
	UserID               string `json:"user_id"`
	DisplayName          string `json:"display_name"`
	TotalQuizScore       int    `json:"total_quiz_score"`
	TotalAssignmentScore int    `json:"total_assignment_score"`
	CombinedScore        int    `json:"combined_score"`
}
