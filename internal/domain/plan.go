package domain

// Activity is one time-boxed entry of the final plan.
type Activity struct {
	Name                string   `json:"name"`
	TimeSlot            string   `json:"time_slot"`
	LocationName        string   `json:"location_name"`
	Address             string   `json:"address,omitempty"`
	Description         string   `json:"description,omitempty"`
	ConversationPrompts []string `json:"conversation_prompts,omitempty"`
	PracticalNotes      []string `json:"practical_notes,omitempty"`
	BackupOption        string   `json:"backup_option,omitempty"`
}

// DatePlan is the assembled, time-boxed final output of the pipeline.
type DatePlan struct {
	Title         string     `json:"title"`
	Theme         string     `json:"theme"`
	LocationCity  string     `json:"location_city"`
	TotalDuration string     `json:"total_duration"`
	Activities    []Activity `json:"activities"`
}
