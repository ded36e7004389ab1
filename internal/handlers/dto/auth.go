package dto

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest меняет ровно одно поле профиля
type UpdateProfileRequest struct {
	Field string `json:"field" binding:"required,oneof=username email password"`
	Value string `json:"value" binding:"required"`
}
