package academics

import "time"

// Program statuses.
const (
	StatusDraft    = "draft"
	StatusActive   = "active"
	StatusArchived = "archived"
)

// Degree levels.
const (
	LevelBachelor = "bachelor"
	LevelMaster   = "master"
	LevelDoctoral = "doctoral"
)

// Program is a degree program owned by an org unit (usually a department).
type Program struct {
	ID        int64     `json:"id"`
	OrgUnitID int64     `json:"org_unit_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Level     string    `json:"level"`
	Credits   int       `json:"credits"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Course is a teaching unit inside a program.
type Course struct {
	ID        int64     `json:"id"`
	ProgramID int64     `json:"program_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Credits   int       `json:"credits"`
	Semester  int       `json:"semester"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
