// Package wizard drives the multi-step owner-creation conversation: a
// per-user state machine collecting a draft field by field, with review,
// single-field edit, and a location capture that commits the draft.
package wizard

// State is one step of the owner-creation flow.
type State string

const (
	StateNone       State = "NONE"
	StateTypeSelect State = "TYPE_SELECT"
	StateOwnerName  State = "OWNER_NAME"
	StateOwnerPhone State = "OWNER_PHONE"
	StateOwnerCity  State = "OWNER_CITY"
	StateConfirm    State = "CONFIRM"
	StateEditSelect State = "EDIT_SELECT"
	StateEditField  State = "EDIT_FIELD"
	StateLocation   State = "LOCATION"
)

// InputClass is the shape of an incoming event as seen by the state
// machine, independent of which state receives it.
type InputClass int

const (
	// ClassText is free-form text (or an option label) for the current step.
	ClassText InputClass = iota
	// ClassBack is the wizard's own back control.
	ClassBack
	// ClassCancel discards the draft and ends the flow.
	ClassCancel
	// ClassConfirm accepts the reviewed draft.
	ClassConfirm
	// ClassEdit opens the field picker from review.
	ClassEdit
	// ClassLocation is a shared-location payload.
	ClassLocation
	// ClassNav is a reserved global-navigation label, rejected while the
	// wizard holds focus.
	ClassNav
)

// Wizard control labels. These are reserved within an active flow and
// classified ahead of free text.
const (
	BtnBack    = "⬅️ Back"
	BtnCancel  = "❌ Cancel"
	BtnConfirm = "✅ Confirm"
	BtnEdit    = "✏️ Edit"
)

// Owner type options offered at TYPE_SELECT.
var OwnerTypes = []string{"Truck Owner", "Online Owner", "Auction Company"}

// Field labels offered at EDIT_SELECT.
const (
	FieldName  = "Name"
	FieldPhone = "Phone"
	FieldCity  = "City"
)

// transitions is the legal state table: state × input class → next state.
// A missing entry means the input is rejected in place (the state does
// not change and the current step re-prompts). ClassCancel and ClassNav
// are handled uniformly before the table is consulted.
var transitions = map[State]map[InputClass]State{
	StateTypeSelect: {
		ClassText: StateOwnerName,
		ClassBack: StateNone, // backing out of the first step exits
	},
	StateOwnerName: {
		ClassText: StateOwnerPhone,
		ClassBack: StateTypeSelect,
	},
	StateOwnerPhone: {
		ClassText: StateOwnerCity,
		ClassBack: StateOwnerName,
	},
	StateOwnerCity: {
		ClassText: StateConfirm,
		ClassBack: StateOwnerPhone,
	},
	StateConfirm: {
		ClassConfirm: StateLocation,
		ClassEdit:    StateEditSelect,
	},
	StateEditSelect: {
		ClassText: StateEditField,
		ClassBack: StateConfirm,
	},
	StateEditField: {
		ClassText: StateConfirm,
		ClassBack: StateEditSelect,
	},
	StateLocation: {
		ClassLocation: StateNone, // commit
		ClassBack:     StateConfirm,
	},
}

// Next resolves the table; ok=false leaves the state unchanged.
func Next(s State, in InputClass) (State, bool) {
	row, ok := transitions[s]
	if !ok {
		return s, false
	}
	next, ok := row[in]
	if !ok {
		return s, false
	}
	return next, true
}
