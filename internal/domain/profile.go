package domain

// AdminProfile is the profiles row of a signed-in user.
type AdminProfile struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`

	// AvatarColor is a stable hex color for the initials avatar.
	AvatarColor string `json:"avatar_color"`
}

// DashboardStats summarizes the catalog for the admin dashboard.
type DashboardStats struct {
	Products       int `json:"products"`
	ActiveProducts int `json:"active_products"`
	TotalPurrs     int `json:"total_purrs"`
	TotalViews     int `json:"total_views"`
	BlogPosts      int `json:"blog_posts"`
	Admins         int `json:"admins"`
}
