package models

// Collection names. Every call site uses these; there are no aliases.
const (
	CollectionUsers      = "users"
	CollectionProjects   = "projects"
	CollectionFloorPlans = "floorPlans"
	CollectionQueries    = "queries"
	CollectionActivities = "activities"
	CollectionOTPs       = "otps"
)
