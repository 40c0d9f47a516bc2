package domain

import "time"

// Identity is the backend-assigned record of the current user.
type Identity struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	ClassID   string `json:"classId,omitempty"`
	ClassCode string `json:"classCode,omitempty"`
}

// Actor is the client's model of the current user.
// Identity is nil exactly when Role is RoleAnonymous.
type Actor struct {
	Role     Role      `json:"role"`
	Identity *Identity `json:"identity,omitempty"`
	Token    string    `json:"-"`
}

// AnonymousActor is the actor every session starts with.
func AnonymousActor() Actor {
	return Actor{Role: RoleAnonymous}
}

// Clone returns a deep copy so callers never share the identity pointer.
func (a Actor) Clone() Actor {
	if a.Identity != nil {
		id := *a.Identity
		a.Identity = &id
	}
	return a
}

// ID returns the identity id or an empty string.
func (a Actor) ID() string {
	if a.Identity == nil {
		return ""
	}
	return a.Identity.ID
}

// Name returns the identity display name or an empty string.
func (a Actor) Name() string {
	if a.Identity == nil {
		return ""
	}
	return a.Identity.Name
}

// HasCapturedIdentity reports whether the actor can attribute a quiz score.
func (a Actor) HasCapturedIdentity() bool {
	return a.Identity != nil && a.Role >= RoleStudent
}

// Credentials are the login form fields.
type Credentials struct {
	User string `json:"user" validate:"required"`
	Pass string `json:"pass" validate:"required"`
}

// UserRecord is a user as returned by the backend.
type UserRecord struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	ClassID  string `json:"class_id,omitempty"`
}

// Registration creates a user on the backend.
type Registration struct {
	Name      string  `json:"name" validate:"required"`
	Email     string  `json:"email,omitempty"`
	Type      string  `json:"type" validate:"required"`
	ClassCode *string `json:"classCode"`
}

// ClassRef is the result of resolving a join code.
type ClassRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ClassRecord is a class as listed on the dashboard.
type ClassRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	Theme     string `json:"theme,omitempty"`
	TeacherID string `json:"teacher_id"`
	CreatedAt string `json:"created_at,omitempty"`
}

// NewClass is a class creation request.
type NewClass struct {
	Name      string `json:"name" validate:"required"`
	Theme     string `json:"theme,omitempty"`
	TeacherID string `json:"teacherId" validate:"required"`
}

// ClassCode is the backend reply to class creation.
type ClassCode struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

// HistoryRecord is one recorded attempt.
type HistoryRecord struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	UserID      string `json:"user_id,omitempty"`
	StudentName string `json:"student_name_snapshot,omitempty"`
	Theme       string `json:"theme,omitempty"`
	Score       int    `json:"score"`
	Total       int    `json:"total"`
	Percentage  int    `json:"percentage"`
	Date        string `json:"date,omitempty"`
	Details     string `json:"details,omitempty"`
}

// HistoryEntry is an attempt submitted to the backend.
type HistoryEntry struct {
	Type        string `json:"type"`
	UserID      string `json:"userId,omitempty"`
	StudentName string `json:"studentName,omitempty"`
	Theme       string `json:"theme,omitempty"`
	Score       int    `json:"score"`
	Total       int    `json:"total"`
	Percentage  int    `json:"percentage"`
	Details     string `json:"details,omitempty"`
}

// Dashboard is the role-scoped aggregate shown after login.
type Dashboard struct {
	Classes   []ClassRecord   `json:"classes"`
	History   []HistoryRecord `json:"history"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Severity classifies a notification.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityError Severity = "error"
)

// Notification is a short-lived message for the presentation layer.
type Notification struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	CreatedAt time.Time `json:"createdAt"`
}

// View is the screen the presentation layer should show.
type View string

const (
	ViewHome        View = "home"
	ViewStudentArea View = "student-area"
	ViewTeacher     View = "teacher"
	ViewSettings    View = "settings"
)
