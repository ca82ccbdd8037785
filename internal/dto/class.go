package dto

// CreateClassRequest registers a class for the calling teacher.
type CreateClassRequest struct {
	Name    string `json:"name" validate:"required"`
	Subject string `json:"subject" validate:"required"`
}

// JoinClassRequest joins a class by its code.
type JoinClassRequest struct {
	JoinCode string `json:"joinCode" validate:"required,len=5"`
}
