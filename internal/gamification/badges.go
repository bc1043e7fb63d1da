package gamification

// Point-awarding actions.
const (
	ActionLogin         = "login"
	ActionVote          = "vote"
	ActionHealthQuery   = "health_query"
	ActionProductView   = "product_view"
	ActionProductList   = "product_list"
	ActionSchemeCheck   = "scheme_check"
	ActionVideoWatch    = "video_watch"
	ActionProfileUpdate = "profile_update"
	ActionSOSSetup      = "sos_setup"
	ActionCommunityPost = "community_post"
	ActionShareResource = "share_resource"
	ActionVoiceInput    = "voice_input"
)

// Points maps each action to the points it awards.
var Points = map[string]int{
	ActionLogin:         5,
	ActionVote:          10,
	ActionHealthQuery:   8,
	ActionProductView:   2,
	ActionProductList:   25,
	ActionSchemeCheck:   12,
	ActionVideoWatch:    15,
	ActionProfileUpdate: 20,
	ActionSOSSetup:      50,
	ActionCommunityPost: 18,
	ActionShareResource: 30,
	ActionVoiceInput:    5,
}

// Badge describes one achievement. Points here are display metadata and do
// not feed the total score.
type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Points      int    `json:"points"`
}

// Catalog is the full badge set, in award-priority order.
var Catalog = []Badge{
	{ID: "first_login", Name: "Welcome Sakhi", Description: "Completed first login", Points: 10},
	{ID: "sos_setup", Name: "Safety First", Description: "Set up safety circle", Points: 50},
	{ID: "first_vote", Name: "Voice Matters", Description: "Cast first vote in community", Points: 25},
	{ID: "five_votes", Name: "Active Citizen", Description: "Participated in 5 community decisions", Points: 100},
	{ID: "health_query", Name: "Health Seeker", Description: "Asked first health question", Points: 20},
	{ID: "ten_health_queries", Name: "Health Champion", Description: "Asked 10+ health questions", Points: 150},
	{ID: "product_listed", Name: "Entrepreneur", Description: "Listed first product", Points: 75},
	{ID: "five_products", Name: "Shop Owner", Description: "Listed 5+ products", Points: 200},
	{ID: "scheme_checked", Name: "Aware Citizen", Description: "Checked scheme eligibility", Points: 30},
	{ID: "video_watched", Name: "Learner", Description: "Completed first video lesson", Points: 15},
	{ID: "five_videos", Name: "Knowledge Seeker", Description: "Watched 5+ educational videos", Points: 120},
	{ID: "profile_complete", Name: "Profile Pro", Description: "Completed full profile", Points: 40},
	{ID: "week_streak", Name: "Consistent Sakhi", Description: "7-day login streak", Points: 180},
	{ID: "community_helper", Name: "Community Star", Description: "Helped 5 community members", Points: 250},
	{ID: "voice_user", Name: "Voice Expert", Description: "Used voice input 10 times", Points: 90},
}

// BadgeByID looks a badge up in the catalog.
func BadgeByID(id string) (Badge, bool) {
	for _, b := range Catalog {
		if b.ID == id {
			return b, true
		}
	}
	return Badge{}, false
}

// badgeRule ties a badge to the counter and threshold that earn it.
type badgeRule struct {
	badgeID   string
	action    string
	threshold int
}

var badgeRules = []badgeRule{
	{"first_login", ActionLogin, 1},
	{"sos_setup", ActionSOSSetup, 1},
	{"first_vote", ActionVote, 1},
	{"five_votes", ActionVote, 5},
	{"health_query", ActionHealthQuery, 1},
	{"ten_health_queries", ActionHealthQuery, 10},
	{"product_listed", ActionProductList, 1},
	{"five_products", ActionProductList, 5},
	{"scheme_checked", ActionSchemeCheck, 1},
	{"video_watched", ActionVideoWatch, 1},
	{"five_videos", ActionVideoWatch, 5},
	{"profile_complete", ActionProfileUpdate, 1},
	{"community_helper", ActionCommunityPost, 5},
	{"voice_user", ActionVoiceInput, 10},
}

// EligibleBadges returns every badge id earned by the given counters and
// login streak. Pure function: awarding idempotence lives in the store.
func EligibleBadges(counts map[string]int, loginStreak int) []string {
	var ids []string
	for _, r := range badgeRules {
		if counts[r.action] >= r.threshold {
			ids = append(ids, r.badgeID)
		}
	}
	if loginStreak >= 7 {
		ids = append(ids, "week_streak")
	}
	return ids
}

var levelThresholds = []int{100, 300, 600, 1000, 1500, 2200, 3000, 4000, 5500}

// Level converts total points to a level from 1 to 10. Non-decreasing step
// function of points.
func Level(points int) int {
	for i, threshold := range levelThresholds {
		if points < threshold {
			return i + 1
		}
	}
	return 10
}

// NextLevelPoints returns the point total at which the next level starts.
// At the top level it returns the current points.
func NextLevelPoints(points int) int {
	for _, threshold := range levelThresholds {
		if points < threshold {
			return threshold
		}
	}
	return points
}
