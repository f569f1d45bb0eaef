package models

import (
	"strings"
	"time"
)

// WorkflowState is the approval stage of a defense request
type WorkflowState string

const (
	StatePending           WorkflowState = "pending"
	StateAdviserReview     WorkflowState = "adviser-review"
	StateCoordinatorReview WorkflowState = "coordinator-review"
	StateScheduled         WorkflowState = "scheduled"
	StateCompleted         WorkflowState = "completed"
	// StateRevision is reached only by rejection and is not forward progress
	StateRevision WorkflowState = "revision"
)

// ApprovalStatus is the per-approver sub-status (adviser, coordinator)
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "Pending"
	ApprovalApproved ApprovalStatus = "Approved"
	ApprovalRejected ApprovalStatus = "Rejected"
)

// AAStatus is the Administrative Assistant payment-verification status
type AAStatus string

const (
	AAPending         AAStatus = "pending"
	AAReadyForFinance AAStatus = "ready_for_finance"
	AAInProgress      AAStatus = "in_progress"
	AAPaid            AAStatus = "paid"
	AACompleted       AAStatus = "completed"
)

// AAStatuses lists the AA statuses in workflow order
var AAStatuses = []AAStatus{AAPending, AAReadyForFinance, AAInProgress, AAPaid, AACompleted}

// Rank returns the position of the status in workflow order, or -1 if unknown
func (s AAStatus) Rank() int {
	for i, status := range AAStatuses {
		if status == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a known AA status
func (s AAStatus) Valid() bool {
	return s.Rank() >= 0
}

// ProgramLevel classifies a graduate program
type ProgramLevel string

const (
	LevelMasteral  ProgramLevel = "Masteral"
	LevelDoctorate ProgramLevel = "Doctorate"
)

// Category returns the reporting category used on program records
func (l ProgramLevel) Category() string {
	if l == LevelDoctorate {
		return "Doctorate"
	}
	return "Masters"
}

// DefenseType is the canonical defense stage
type DefenseType string

const (
	DefenseProposal DefenseType = "Proposal"
	DefensePreFinal DefenseType = "Pre-final"
	DefenseFinal    DefenseType = "Final"
)

// CommitteeRole is the closed set of roles a panelist can hold on one defense
type CommitteeRole string

const (
	RoleAdviser      CommitteeRole = "Adviser"
	RolePanelChair   CommitteeRole = "Panel Chair"
	RolePanelMember1 CommitteeRole = "Panel Member 1"
	RolePanelMember2 CommitteeRole = "Panel Member 2"
	RolePanelMember3 CommitteeRole = "Panel Member 3"
	RolePanelMember4 CommitteeRole = "Panel Member 4"
)

// CommitteeRoles lists every committee role in seat order
var CommitteeRoles = []CommitteeRole{
	RoleAdviser,
	RolePanelChair,
	RolePanelMember1,
	RolePanelMember2,
	RolePanelMember3,
	RolePanelMember4,
}

// Order returns the seat order of the role, or len(CommitteeRoles) if unknown
func (r CommitteeRole) Order() int {
	for i, role := range CommitteeRoles {
		if role == r {
			return i
		}
	}
	return len(CommitteeRoles)
}

// ParseCommitteeRole matches a role name verbatim against the closed set
func ParseCommitteeRole(s string) (CommitteeRole, bool) {
	for _, role := range CommitteeRoles {
		if string(role) == s {
			return role, true
		}
	}
	return "", false
}

// EventType names a workflow event delivered to the notification dispatcher
type EventType string

const (
	EventSubmitted           EventType = "defense.submitted"
	EventSentToAdviser       EventType = "defense.sent_to_adviser"
	EventEndorsedCoordinator EventType = "defense.endorsed_to_coordinator"
	EventScheduled           EventType = "defense.scheduled"
	EventCompleted           EventType = "defense.completed"
	EventReturnedForRevision EventType = "defense.returned_for_revision"
	EventResubmitted         EventType = "defense.resubmitted"
	EventCommitteeAssigned   EventType = "defense.committee_assigned"
	EventAAStatusChanged     EventType = "aa.status_changed"
	EventHonorariaReady      EventType = "honorarium.ready_for_finance"
)

// UserRole is the application role carried by an authenticated actor
type UserRole string

const (
	UserRoleStudent     UserRole = "student"
	UserRoleAdviser     UserRole = "adviser"
	UserRoleCoordinator UserRole = "coordinator"
	UserRoleAA          UserRole = "aa"
	UserRoleAdmin       UserRole = "admin"
)

// Valid reports whether r is a known role
func (r UserRole) Valid() bool {
	switch r {
	case UserRoleStudent, UserRoleAdviser, UserRoleCoordinator, UserRoleAA, UserRoleAdmin:
		return true
	}
	return false
}

// User represents a portal user
type User struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Role      UserRole  `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Panelist is an entry of the source panelist directory
type Panelist struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// DefenseRequest is one student defense attempt
type DefenseRequest struct {
	ID                 int64          `json:"id" db:"id"`
	StudentName        string         `json:"student_name" db:"student_name"`
	SchoolID           string         `json:"school_id" db:"school_id"`
	StudentEmail       string         `json:"student_email" db:"student_email"`
	Program            string         `json:"program" db:"program"`
	ThesisTitle        string         `json:"thesis_title" db:"thesis_title"`
	WorkflowState      WorkflowState  `json:"workflow_state" db:"workflow_state"`
	AdviserStatus      ApprovalStatus `json:"adviser_status" db:"adviser_status"`
	CoordinatorStatus  ApprovalStatus `json:"coordinator_status" db:"coordinator_status"`
	DefenseType        DefenseType    `json:"defense_type" db:"defense_type"`
	DefenseMode        string         `json:"defense_mode" db:"defense_mode"`
	ScheduledDate      *time.Time     `json:"scheduled_date,omitempty" db:"scheduled_date"`
	ScheduledTime      string         `json:"scheduled_time,omitempty" db:"scheduled_time"`
	AdviserName        string         `json:"adviser_name" db:"adviser_name"`
	AdviserUserID      *int64         `json:"adviser_user_id,omitempty" db:"adviser_user_id"`
	CoordinatorUserID  *int64         `json:"coordinator_user_id,omitempty" db:"coordinator_user_id"`
	DefenseChairperson string         `json:"defense_chairperson" db:"defense_chairperson"`
	DefensePanelist1   string         `json:"defense_panelist1" db:"defense_panelist1"`
	DefensePanelist2   string         `json:"defense_panelist2" db:"defense_panelist2"`
	DefensePanelist3   string         `json:"defense_panelist3" db:"defense_panelist3"`
	DefensePanelist4   string         `json:"defense_panelist4" db:"defense_panelist4"`
	Amount             Centavos       `json:"amount" db:"amount"`
	PaymentDate        *time.Time     `json:"payment_date,omitempty" db:"payment_date"`
	ORNumber           string         `json:"or_number" db:"or_number"`
	RevisionReason     string         `json:"revision_reason,omitempty" db:"revision_reason"`
	CreatedAt          time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at" db:"updated_at"`
}

// CommitteeSeat is one occupied role slot on a defense committee
type CommitteeSeat struct {
	Role CommitteeRole `json:"role"`
	Name string        `json:"name"`
}

// Committee returns the occupied committee seats in seat order
func (d *DefenseRequest) Committee() []CommitteeSeat {
	slots := []CommitteeSeat{
		{Role: RoleAdviser, Name: d.AdviserName},
		{Role: RolePanelChair, Name: d.DefenseChairperson},
		{Role: RolePanelMember1, Name: d.DefensePanelist1},
		{Role: RolePanelMember2, Name: d.DefensePanelist2},
		{Role: RolePanelMember3, Name: d.DefensePanelist3},
		{Role: RolePanelMember4, Name: d.DefensePanelist4},
	}

	seats := make([]CommitteeSeat, 0, len(slots))
	for _, slot := range slots {
		name := strings.TrimSpace(slot.Name)
		if name == "" {
			continue
		}
		seats = append(seats, CommitteeSeat{Role: slot.Role, Name: name})
	}
	return seats
}

// PanelMembers counts the occupied panel member slots (chair and adviser excluded)
func (d *DefenseRequest) PanelMembers() int {
	count := 0
	for _, name := range []string{d.DefensePanelist1, d.DefensePanelist2, d.DefensePanelist3, d.DefensePanelist4} {
		if strings.TrimSpace(name) != "" {
			count++
		}
	}
	return count
}

// HasChairperson reports whether a chairperson is assigned
func (d *DefenseRequest) HasChairperson() bool {
	return strings.TrimSpace(d.DefenseChairperson) != ""
}

// AAVerification is the AA payment verification attached to a defense request
type AAVerification struct {
	ID               int64     `json:"id" db:"id"`
	DefenseRequestID int64     `json:"defense_request_id" db:"defense_request_id"`
	Status           AAStatus  `json:"status" db:"status"`
	UpdatedByUserID  *int64    `json:"updated_by_user_id,omitempty" db:"updated_by_user_id"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// PaymentRate is one row of the honorarium rate table
type PaymentRate struct {
	ID           int64         `json:"id" db:"id"`
	ProgramLevel ProgramLevel  `json:"program_level" db:"program_level"`
	DefenseType  DefenseType   `json:"defense_type" db:"defense_type"`
	Role         CommitteeRole `json:"role" db:"role"`
	Amount       Centavos      `json:"amount" db:"amount"`
}

// HonorariumPayment is the fee owed to one committee seat of a defense.
// PanelistID is the optional resolved identity; PanelistName is always present.
type HonorariumPayment struct {
	ID               int64         `json:"id" db:"id"`
	DefenseRequestID int64         `json:"defense_request_id" db:"defense_request_id"`
	PanelistID       *int64        `json:"panelist_id,omitempty" db:"panelist_id"`
	PanelistName     string        `json:"panelist_name" db:"panelist_name"`
	Role             CommitteeRole `json:"role" db:"role"`
	Amount           Centavos      `json:"amount" db:"amount"`
	PaymentDate      time.Time     `json:"payment_date" db:"payment_date"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
}

// HistoryEntry records one workflow transition of a defense request
type HistoryEntry struct {
	ID               int64         `json:"id" db:"id"`
	DefenseRequestID int64         `json:"defense_request_id" db:"defense_request_id"`
	FromState        WorkflowState `json:"from_state" db:"from_state"`
	ToState          WorkflowState `json:"to_state" db:"to_state"`
	ActorUserID      *int64        `json:"actor_user_id,omitempty" db:"actor_user_id"`
	Reason           string        `json:"reason,omitempty" db:"reason"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
}

// ProgramRecord is the normalized reporting program
type ProgramRecord struct {
	ID        int64        `json:"id" db:"id"`
	Name      string       `json:"name" db:"name"`
	Category  string       `json:"category" db:"category"`
	Level     ProgramLevel `json:"program_level" db:"program_level"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}

// StudentRecord is one completed defense occurrence in the reporting projection
type StudentRecord struct {
	ID               int64       `json:"id" db:"id"`
	StudentID        string      `json:"student_id" db:"student_id"`
	DefenseRequestID int64       `json:"defense_request_id" db:"defense_request_id"`
	ProgramRecordID  int64       `json:"program_record_id" db:"program_record_id"`
	Name             string      `json:"name" db:"name"`
	ThesisTitle      string      `json:"thesis_title" db:"thesis_title"`
	DefenseDate      *time.Time  `json:"defense_date,omitempty" db:"defense_date"`
	DefenseType      DefenseType `json:"defense_type" db:"defense_type"`
	ORNumber         string      `json:"or_number" db:"or_number"`
	PaymentDate      *time.Time  `json:"payment_date,omitempty" db:"payment_date"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at" db:"updated_at"`
}

// PanelistRecord is a panelist scoped to one program in the reporting projection
type PanelistRecord struct {
	ID               int64     `json:"id" db:"id"`
	ProgramRecordID  int64     `json:"program_record_id" db:"program_record_id"`
	Name             string    `json:"name" db:"name"`
	SourcePanelistID *int64    `json:"source_panelist_id,omitempty" db:"source_panelist_id"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// PanelistAssignment is the panelist-student pivot carrying the role of that assignment
type PanelistAssignment struct {
	PanelistRecordID int64         `json:"panelist_record_id" db:"panelist_record_id"`
	StudentRecordID  int64         `json:"student_record_id" db:"student_record_id"`
	Role             CommitteeRole `json:"role" db:"role"`
}

// PaymentRecord is one (student, panelist) payment in the reporting projection
type PaymentRecord struct {
	ID               int64     `json:"id" db:"id"`
	StudentRecordID  int64     `json:"student_record_id" db:"student_record_id"`
	PanelistRecordID int64     `json:"panelist_record_id" db:"panelist_record_id"`
	DefenseRequestID int64     `json:"defense_request_id" db:"defense_request_id"`
	Amount           Centavos  `json:"amount" db:"amount"`
	PaymentDate      time.Time `json:"payment_date" db:"payment_date"`
	DefenseStatus    string    `json:"defense_status" db:"defense_status"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// HonorariumReportRow is a flattened line of the honorarium report
type HonorariumReportRow struct {
	Program     string        `json:"program"`
	Category    string        `json:"category"`
	StudentID   string        `json:"student_id"`
	StudentName string        `json:"student_name"`
	DefenseType DefenseType   `json:"defense_type"`
	DefenseDate *time.Time    `json:"defense_date,omitempty"`
	Panelist    string        `json:"panelist"`
	Role        CommitteeRole `json:"role"`
	Amount      Centavos      `json:"amount"`
	PaymentDate time.Time     `json:"payment_date"`
	ORNumber    string        `json:"or_number"`
}
