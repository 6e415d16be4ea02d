package user

// Session is the request-scoped identity of the logged in User.
// A nil *Session is a valid, anonymous session.
type Session struct {
	UserID int    `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

func NewSession(usr User) *Session {
	return &Session{
		UserID: usr.ID,
		Name:   usr.Name,
		Email:  usr.Email,
		Role:   usr.Role,
	}
}

func (s *Session) IsLoggedIn() bool {
	return s != nil && s.UserID != 0
}

func (s *Session) IsTeacher() bool {
	return s.IsLoggedIn() && s.Role == RoleTeacher
}

func (s *Session) IsStudent() bool {
	return s.IsLoggedIn() && s.Role == RoleStudent
}

// Is reports whether the session belongs to the User with the given id.
func (s *Session) Is(userID int) bool {
	return s.IsLoggedIn() && s.UserID == userID
}
