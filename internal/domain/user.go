package domain

type User struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewUser carries the attributes accepted when a user is created.
type NewUser struct {
	Name  string `json:"name"  validate:"required,max=50"`
	Email string `json:"email" validate:"required,email,max=255"`
}

// UserPatch is a partial update; nil fields are left untouched.
type UserPatch struct {
	Name  *string `json:"name"  validate:"omitempty,min=1,max=50"`
	Email *string `json:"email" validate:"omitempty,email,max=255"`
}
