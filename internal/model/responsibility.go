package model

import "time"

// Responsibility represents one unit of custody: a (holder, equipment,
// quantity) reservation tracked from request to a terminal state.
type Responsibility struct {
	ID          int64      `json:"id"`
	Reference   string     `json:"reference"`
	UserID      int64      `json:"user_id"`
	EquipmentID int64      `json:"equipment_id"`
	Quantity    int        `json:"quantity"`
	Status      string     `json:"status"`
	RequestDate time.Time  `json:"request_date"`
	IssueDate   *time.Time `json:"issue_date,omitempty"`
	ReturnDate  *time.Time `json:"return_date,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	ApprovedBy  *int64     `json:"approved_by,omitempty"`

	TransferChain []TransferLink `json:"transfer_chain,omitempty"`

	// Joined fields (not always populated).
	Username      string `json:"username,omitempty"`
	EquipmentName string `json:"equipment_name,omitempty"`
}

// Responsibility statuses. Pending, waiting, and approved (auto-approval)
// are the only legal initial states; rejected, returned, and transferred
// are terminal.
const (
	StatusPending     = "pending"
	StatusApproved    = "approved"
	StatusRejected    = "rejected"
	StatusReturned    = "returned"
	StatusOverdue     = "overdue"
	StatusWaiting     = "waiting"
	StatusTransferred = "transferred"
)

// ValidStatus reports whether status is a known responsibility status.
func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusApproved, StatusRejected, StatusReturned,
		StatusOverdue, StatusWaiting, StatusTransferred:
		return true
	}
	return false
}

// TransferLink is one immutable handoff in a responsibility's custody chain.
// Links accumulate on the receiving responsibility, so the full history of a
// physical unit can be read off the current holder's record.
type TransferLink struct {
	ID               int64     `json:"id"`
	ResponsibilityID int64     `json:"-"`
	FromUserID       int64     `json:"from_user_id"`
	ToUserID         int64     `json:"to_user_id"`
	Date             time.Time `json:"date"`

	// Joined fields (not always populated).
	FromUsername string `json:"from_username,omitempty"`
	ToUsername   string `json:"to_username,omitempty"`
}

// CustodyRecord is one row of the chain-of-custody report: a responsibility
// resolved with requester, equipment, and approver identities.
type CustodyRecord struct {
	Responsibility
	ApproverUsername  string `json:"approver_username,omitempty"`
	EquipmentCategory string `json:"equipment_category,omitempty"`
}
