// Package store holds the durable-state layer: typed access to the named
// tables that form the system of record. All values cross the tabular
// boundary as strings; this package owns the schemas and the mapping
// between column positions and meaning.
package store

// Tables carries the configured table names.
type Tables struct {
	Users  string
	Grants string
	Owners string
	Items  string
	Log    string
	Tasks  string
}

// Role is an authorization label controlling which panels and actions an
// identity may invoke.
type Role string

const (
	RoleNone       Role = ""
	RoleFinder     Role = "FINDER"
	RoleSeller     Role = "SELLER"
	RoleBoth       Role = "BOTH"
	RoleGatekeeper Role = "GATEKEEPER"
	RoleAdmin      Role = "ADMIN"
)

// ParseRole maps a token to a Role, reporting whether it is known.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleFinder, RoleSeller, RoleBoth, RoleGatekeeper, RoleAdmin:
		return Role(s), true
	}
	return RoleNone, false
}

// Expand resolves the composite BOTH token into its discrete grants.
func (r Role) Expand() []Role {
	if r == RoleBoth {
		return []Role{RoleFinder, RoleSeller}
	}
	return []Role{r}
}

// DeriveRole reduces a set of discrete role grants to one effective role:
// ADMIN > GATEKEEPER > (FINDER & SELLER => BOTH) > FINDER > SELLER > none.
func DeriveRole(grants []Role) Role {
	var finder, seller bool
	for _, g := range grants {
		switch g {
		case RoleAdmin:
			return RoleAdmin
		case RoleFinder:
			finder = true
		case RoleSeller:
			seller = true
		}
	}
	for _, g := range grants {
		if g == RoleGatekeeper {
			return RoleGatekeeper
		}
	}
	switch {
	case finder && seller:
		return RoleBoth
	case finder:
		return RoleFinder
	case seller:
		return RoleSeller
	}
	return RoleNone
}

// UserStatus is the approval state of an identity.
type UserStatus string

const (
	StatusPending UserStatus = "PENDING"
	StatusActive  UserStatus = "ACTIVE"
	StatusBlocked UserStatus = "BLOCKED"
)

// OwnerStatus tracks the review state of an owner record.
type OwnerStatus string

const (
	OwnerPending  OwnerStatus = "PENDING"
	OwnerApproved OwnerStatus = "APPROVED"
	OwnerBlocked  OwnerStatus = "BLOCKED"
)

// ItemStatus is the lifecycle state of an item record.
type ItemStatus string

const (
	ItemDraft         ItemStatus = "DRAFT"
	ItemPendingReview ItemStatus = "PENDING_REVIEW"
	ItemActive        ItemStatus = "ACTIVE"
	ItemSold          ItemStatus = "SOLD"
	ItemHidden        ItemStatus = "HIDDEN"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskOpen        TaskStatus = "OPEN"
	TaskDone        TaskStatus = "DONE"
	TaskSnoozed     TaskStatus = "SNOOZED"
	TaskRescheduled TaskStatus = "RESCHEDULED"
)

// TaskType distinguishes follow-up calls from plain to-dos.
type TaskType string

const (
	TaskFollowup TaskType = "FOLLOWUP"
	TaskTodo     TaskType = "TODO"
)

// usersSchema is the USERS table header. Index constants below must stay
// in the same order.
var usersSchema = []string{
	"USER_ID",
	"FULL_NAME",
	"USERNAME",
	"ROLE",
	"STATUS",
	"CREATED_AT",
	"APPROVED_BY",
	"APPROVED_AT",
}

const (
	uColID = iota
	uColFullName
	uColUsername
	uColRole
	uColStatus
	uColCreatedAt
	uColApprovedBy
	uColApprovedAt
)

// grantsSchema is the discrete role-grants table: one row per (user, role).
var grantsSchema = []string{
	"USER_ID",
	"ROLE",
	"GRANTED_BY",
	"GRANTED_AT",
}

const (
	gColUserID = iota
	gColRole
	gColGrantedBy
	gColGrantedAt
)

var ownersSchema = []string{
	"OWNER_ID",
	"OWNER_TYPE", // Truck Owner / Online Owner / Auction Company
	"OWNER_NAME",
	"OWNER_PHONE",
	"CITY_STATE",
	"SOURCE_PLATFORM",
	"SOURCE_LINK",
	"MAPS_LINK",
	"LOCATION_PHOTO_URL",
	"CLAIMED_BY_FINDER_ID",
	"OWNER_STATUS", // PENDING / APPROVED / BLOCKED
	"APPROVED_BY",
	"CREATED_AT",
	"LAST_CONTACTED_AT",
	"NOTES",
}

const (
	oColID = iota
	oColType
	oColName
	oColPhone
	oColCity
	oColSourcePlatform
	oColSourceLink
	oColMapsLink
	oColLocationPhoto
	oColClaimedBy
	oColStatus
	oColApprovedBy
	oColCreatedAt
	oColLastContactedAt
	oColNotes
)

var itemsSchema = []string{
	// system
	"FECHA_CREACION_ITEM",
	"ITEM_ID",
	"ESTADO_ITEM", // DRAFT / PENDING_REVIEW / ACTIVE / SOLD / HIDDEN
	"FINDER_WORKER_ID",
	"SELLER_WORKER_ID",
	"GATEKEEPER_ID",
	"LAST_UPDATED_AT",

	// raw intake
	"RAW_CAPTION",
	"PARSE_CONFIDENCE",
	"PHOTO_COUNT",

	// owner link
	"OWNER_ID",
	"OWNER_TYPE",
	"OWNER_NAME_CACHE",

	// public fields
	"VIN_COMPLETO",
	"DESCRIPCION_PUBLICA",
	"UBICACION_PUBLICA",

	// pricing/admin
	"OWNER_PRICE",
	"LIST_PRICE",
	"COMMISSION_RATE",
	"COMMISSION_AMOUNT",
	"SELLER_COMMISSION_AMOUNT",
	"NET_TO_OWNER",

	// lifecycle confirmations
	"LAST_CONFIRMED_AVAILABLE_AT",
	"NEXT_CONFIRM_DUE_AT",
	"AUTO_HIDE_AT",

	// sold
	"SOLD_AT",
	"SOLD_PRICE",
	"SOLD_NOTES",

	// publishing placeholders
	"SHOPIFY_PRODUCT_ID",
	"SHOPIFY_STATUS",
	"PUBLIC_TELEGRAM_MESSAGE_ID",
}

const (
	iColCreatedAt = iota
	iColID
	iColStatus
	iColFinderID
	iColSellerID
	iColGatekeeperID
	iColUpdatedAt
	iColRawCaption
	iColParseConfidence
	iColPhotoCount
	iColOwnerID
	iColOwnerType
	iColOwnerNameCache
	iColVIN
	iColPublicDesc
	iColPublicLocation
	iColOwnerPrice
	iColListPrice
	iColCommissionRate
	iColCommissionAmount
	iColSellerCommission
	iColNetToOwner
	iColLastConfirmedAt
	iColNextConfirmDueAt
	iColAutoHideAt
	iColSoldAt
	iColSoldPrice
	iColSoldNotes
	iColShopifyProductID
	iColShopifyStatus
	iColPublicMessageID
)

var logSchema = []string{
	"ENTRY_ID",
	"TIMESTAMP",
	"USER_ID",
	"ROLE_AT_TIME",
	"ACTION_TYPE",
	"ITEM_ID",
	"OWNER_ID",
	"DETAILS",
	"RESULT",
}

const (
	lColEntryID = iota
	lColTimestamp
	lColUserID
	lColRole
	lColAction
	lColItemID
	lColOwnerID
	lColDetails
	lColResult
)

var tasksSchema = []string{
	"TASK_ID",
	"CREATED_AT",
	"CREATED_BY_USER_ID",
	"ASSIGNED_TO_USER_ID",
	"TASK_TYPE", // FOLLOWUP / TODO
	"TITLE",
	"DESCRIPTION",
	"DUE_AT",
	"STATUS", // OPEN / DONE / SNOOZED / RESCHEDULED
	"LAST_REMINDER_SENT_AT",
	"REMINDER_FREQUENCY_MIN",
	"RELATED_OWNER_ID",
	"RELATED_ITEM_ID",
}

const (
	tColID = iota
	tColCreatedAt
	tColCreatedBy
	tColAssignedTo
	tColType
	tColTitle
	tColDescription
	tColDueAt
	tColStatus
	tColLastReminderAt
	tColReminderFreqMin
	tColRelatedOwnerID
	tColRelatedItemID
)

// timeLayout is the timestamp format written to every table.
const timeLayout = "2006-01-02 15:04:05"
