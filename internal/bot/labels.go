package bot

// Panel labels on the admin main menu.
const (
	PanelItems    = "📦 ITEMS"
	PanelAccounts = "🏢 ACCOUNTS"
	PanelWorkflow = "🔄 WORKFLOW"
	PanelUsers    = "👥 USERS"
	PanelTasks    = "📝 TASKS"
	PanelReports  = "📊 REPORTS PANEL"
	PanelSystem   = "⚙️ SYSTEM"
	PanelBack     = "🔙 BACK"
)

// BtnStart opens the role-appropriate menu.
const BtnStart = "▶ START"

// Shared worker buttons.
const (
	BtnHelp         = "❓ HELP"
	BtnNewTodo      = "🆕 NEW TO DO"
	BtnCompleteTask = "✅ COMPLETE TASK"
	BtnMyAccounts   = "👤 MY ACCOUNTS"
	BtnFollowUp     = "📞 FOLLOW UP CONTACT"
	BtnEditItem     = "🏷️ EDIT ITEM"
)

// Finder buttons.
const (
	BtnNewItem  = "📦 NEW ITEM"
	BtnAddOwner = "👤 ADD OWNER"
	BtnMyItems  = "🗂️ MY ITEMS"
)

// Seller buttons.
const (
	BtnGetPrice = "💰 GET PRICE"
	BtnMarkSold = "✅ MARK SOLD"
	BtnMySales  = "🗂️ MY SALES"
)

// Gatekeeper buttons.
const (
	BtnApprovePublishNext = "✅ APPROVE & PUBLISH NEXT"
	BtnRequestChanges     = "📝 REQUEST CHANGES"
	BtnHideItem           = "🙈 HIDE ITEM"
	BtnAssignSeller       = "🧑‍💼 ASSIGN SELLER"
	BtnViewPending        = "🗂️ VIEW PENDING"
	BtnViewReports        = "📊 VIEW REPORTS"
)

// NavLabels is the reserved global-navigation set. While a wizard holds
// focus, any of these is rejected with a lock notice instead of routed.
func NavLabels() []string {
	return []string{
		PanelItems, PanelAccounts, PanelWorkflow, PanelUsers,
		PanelTasks, PanelReports, PanelSystem, PanelBack,
		BtnStart, BtnHelp,
	}
}

// menuLabels is every button the router knows how to route: panels,
// navigation and the worker actions. Pressing one of these abandons a
// pending caption capture instead of feeding it as item text.
func menuLabels() map[string]struct{} {
	set := make(map[string]struct{})
	for _, l := range NavLabels() {
		set[l] = struct{}{}
	}
	for _, l := range []string{
		BtnNewTodo, BtnCompleteTask, BtnMyAccounts, BtnFollowUp, BtnEditItem,
		BtnNewItem, BtnAddOwner, BtnMyItems,
		BtnGetPrice, BtnMarkSold, BtnMySales,
		BtnApprovePublishNext, BtnRequestChanges, BtnHideItem,
		BtnAssignSeller, BtnViewPending, BtnViewReports,
	} {
		set[l] = struct{}{}
	}
	return set
}

// adminMenu is the admin main panel layout.
func adminMenu() [][]string {
	return [][]string{
		{PanelItems, PanelAccounts},
		{PanelWorkflow, PanelUsers},
		{PanelTasks, PanelReports},
		{PanelSystem},
		{PanelBack},
	}
}

func finderMenu() [][]string {
	return [][]string{
		{BtnNewItem, BtnAddOwner},
		{BtnMyItems, BtnEditItem},
		{BtnMyAccounts, BtnFollowUp},
		{BtnNewTodo, BtnCompleteTask},
		{BtnHelp},
	}
}

func sellerMenu() [][]string {
	return [][]string{
		{BtnGetPrice, BtnMarkSold},
		{BtnMySales, BtnEditItem},
		{BtnMyAccounts, BtnFollowUp},
		{BtnNewTodo, BtnCompleteTask},
		{BtnHelp},
	}
}

func bothMenu() [][]string {
	return [][]string{
		{BtnNewItem, BtnAddOwner},
		{BtnMyItems, BtnGetPrice},
		{BtnMarkSold, BtnEditItem},
		{BtnMyAccounts, BtnFollowUp},
		{BtnNewTodo, BtnCompleteTask},
		{BtnHelp},
	}
}

func gatekeeperMenu() [][]string {
	return [][]string{
		{BtnApprovePublishNext},
		{BtnRequestChanges, BtnEditItem},
		{BtnHideItem, BtnAssignSeller},
		{BtnViewPending, BtnViewReports},
		{BtnFollowUp},
		{BtnNewTodo, BtnCompleteTask},
		{BtnHelp},
	}
}
