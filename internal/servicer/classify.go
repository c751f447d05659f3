package servicer

import "inference-service/internal/schemas"

// ppeViolationByClassName maps a detector class name onto the closed PPE
// violation enum. Class names follow the "no_<item>" convention used
// throughout this service (see internal/publisher/compliance.go).
var ppeViolationByClassName = map[string]schemas.PPEViolationType{
	"no_helmet":         schemas.PPEViolationNoHelmet,
	"no_safety_vest":    schemas.PPEViolationNoSafetyVest,
	"no_vest":           schemas.PPEViolationNoSafetyVest,
	"no_safety_glasses": schemas.PPEViolationNoSafetyGlass,
	"no_goggles":        schemas.PPEViolationNoSafetyGlass,
	"no_gloves":         schemas.PPEViolationNoGloves,
	"no_safety_boots":   schemas.PPEViolationNoSafetyBoots,
	"no_boots":          schemas.PPEViolationNoSafetyBoots,
	"no_ear_protection": schemas.PPEViolationNoEarProtect,
	"no_face_mask":      schemas.PPEViolationNoFaceMask,
	"no_mask":           schemas.PPEViolationNoFaceMask,
}

// activityByClassName maps a detector class name onto the closed activity
// enum.
var activityByClassName = map[string]schemas.ActivityType{
	"walking":             schemas.ActivityWalking,
	"standing":            schemas.ActivityStanding,
	"operating_machinery": schemas.ActivityOperatingMachine,
	"lifting":             schemas.ActivityLifting,
	"climbing":            schemas.ActivityClimbing,
	"running":             schemas.ActivityRunning,
	"falling":             schemas.ActivityFalling,
	"reaching":            schemas.ActivityReaching,
	"carrying":            schemas.ActivityCarrying,
}
