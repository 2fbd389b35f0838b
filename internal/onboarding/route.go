// Package onboarding decides where a first-run user lands and records each
// completed onboarding step.
package onboarding

// Route is a landing destination. Onboarding routes are ordered; a user only
// moves forward through them.
type Route int

const (
	NeedsLanguage Route = iota
	NeedsCrop
	NeedsFirstReward
	NeedsAuth
	Home
)

var routeNames = map[Route]string{
	NeedsLanguage:    "needs-language",
	NeedsCrop:        "needs-crop",
	NeedsFirstReward: "needs-first-reward",
	NeedsAuth:        "needs-auth",
	Home:             "home",
}

func (r Route) String() string {
	if s, ok := routeNames[r]; ok {
		return s
	}
	return "unknown"
}

// Path returns the screen path the route leads to.
func (r Route) Path() string {
	switch r {
	case NeedsLanguage:
		return "/language"
	case NeedsCrop:
		return "/crop"
	case NeedsFirstReward:
		return "/quest-details?id=1"
	case NeedsAuth:
		return "/login"
	default:
		return "/dashboard"
	}
}

// Command returns the kisan command that completes the route's step.
func (r Route) Command() string {
	switch r {
	case NeedsLanguage:
		return "kisan language"
	case NeedsCrop:
		return "kisan crop"
	case NeedsFirstReward:
		return "kisan quest complete 1"
	case NeedsAuth:
		return "kisan login"
	default:
		return "kisan dashboard"
	}
}

// Flags are the local onboarding markers. Empty means unset.
type Flags struct {
	Language      string
	Crop          string
	RewardClaimed bool
}

// DecideLandingRoute picks the landing route. A remote session always wins;
// otherwise the first unset flag decides, and a fully onboarded guest is
// asked to sign in.
func DecideLandingRoute(flags Flags, hasRemoteSession bool) Route {
	switch {
	case hasRemoteSession:
		return Home
	case flags.Language == "":
		return NeedsLanguage
	case flags.Crop == "":
		return NeedsCrop
	case !flags.RewardClaimed:
		return NeedsFirstReward
	default:
		return NeedsAuth
	}
}
