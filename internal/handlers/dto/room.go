package dto

type CreateRoomRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

type JoinRoomRequest struct {
	Key string `json:"key" binding:"required"`
}
