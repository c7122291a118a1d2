package models

// Profile is a Twitter user profile as returned by users/show.
type Profile struct {
	ID              string `json:"id_str"`
	ScreenName      string `json:"screen_name"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	ProfileImageURL string `json:"profile_image_url_https"`
	Protected       bool   `json:"protected"`
	Verified        bool   `json:"verified"`
	FollowersCount  int    `json:"followers_count"`
	StatusesCount   int    `json:"statuses_count"`
}

// ProfileURL returns the canonical link to the profile.
func (p Profile) ProfileURL() string {
	return "https://twitter.com/" + p.ScreenName
}

// StateContent renders the profile as room state content for the read-only
// profile snapshot embedded at room creation.
func (p Profile) StateContent() map[string]any {
	return map[string]any{
		"id_str":                  p.ID,
		"screen_name":             p.ScreenName,
		"name":                    p.Name,
		"description":             p.Description,
		"profile_image_url_https": p.ProfileImageURL,
		"protected":               p.Protected,
		"verified":                p.Verified,
		"followers_count":         p.FollowersCount,
		"statuses_count":          p.StatusesCount,
	}
}
