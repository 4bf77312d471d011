package user

type CreateUserRequest struct {
	Username string `json:"username" binding:"required,max=150"`
	Email    string `json:"email" binding:"omitempty,email,max=254"`
	Password string `json:"password" binding:"required,min=8"`
	IsStaff  bool   `json:"is_staff"`
}

type UserResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	IsStaff   bool   `json:"is_staff"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}
