package storage

// ScoreRow is one user's result for a single round, append-only.
type ScoreRow struct {
	UserID int64
	Score  int
}

// RankedUser is one line of the aggregate rankings view.
type RankedUser struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	Score     int    `json:"score"`
}

// DisplayName prefers the @username, falling back to the first name.
func (u RankedUser) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return u.FirstName
}
