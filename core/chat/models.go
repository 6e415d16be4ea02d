package chat

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// DefaultLimit is how many messages a course chat shows.
const DefaultLimit = 100

type Message struct {
	ID        int       `json:"id"`
	CourseID  int       `json:"course_id"`
	UserID    int       `json:"user_id"`
	UserName  string    `json:"user_name"`
	UserRole  user.Role `json:"user_role"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type NewMessage struct {
	Message string `json:"message" form:"message" validate:"max=2000"`
}

func (nm *NewMessage) Validate(validate *validator.Validate) error {
	nm.Message = core.CleanString(nm.Message)
	return validate.Struct(nm)
}
