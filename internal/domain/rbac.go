package domain

// EnforceRequest asks whether a user may perform action on resource.
type EnforceRequest struct {
	UserID   string `json:"user_id"`
	Resource string `json:"resource" binding:"required"`
	Action   string `json:"action" binding:"required"`
}

type EnforceResponse struct {
	Allowed bool `json:"allowed"`
}

const (
	RoleStaff  = "staff"
	RoleMember = "member"
)

const (
	ResourceWorker = "worker"
	ResourceUser   = "user"

	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionImport = "import"
)
