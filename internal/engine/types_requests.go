package engine

// RenderRequest represents a request to render directories as a listing.
type RenderRequest struct {
	// URLs are the directories to list, one section each
	URLs []string

	// ShowHidden includes dot entries
	ShowHidden bool
}

// PlanRequest represents a request to plan an edited listing.
type PlanRequest struct {
	// Listing is the edited document
	Listing []byte
}

// ApplyRequest represents a request to plan and execute an edited listing.
type ApplyRequest struct {
	// Listing is the edited document
	Listing []byte

	// DryRun performs planning only without making changes
	DryRun bool

	// Force executes the plan even when it has conflicts
	Force bool

	// Confirm is called with the plan before execution. Returning false
	// cancels the apply. Nil means no confirmation.
	Confirm func(*PlanResult) bool

	// Progress is called after each completed action
	Progress ProgressFunc

	// Hooks observe the start and end of execution
	Hooks Hooks
}
