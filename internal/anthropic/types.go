package anthropic

// Credentials mirrors the CLI's on-disk OAuth credential file.
type Credentials struct {
	ClaudeAiOauth struct {
		AccessToken      string `json:"accessToken"`
		RefreshToken     string `json:"refreshToken"`
		ExpiresAt        int64  `json:"expiresAt"`
		SubscriptionType string `json:"subscriptionType"`
		RateLimitTier    string `json:"rateLimitTier"`
	} `json:"claudeAiOauth"`
}

// RateLimitWindow is one remote-reported quota window.
// Utilization is a percentage on the 0-100 scale.
type RateLimitWindow struct {
	Utilization float64 `json:"utilization"`
	ResetsAt    string  `json:"resets_at"`
}

// ExtraUsage reports pay-as-you-go overage spend, in cents.
type ExtraUsage struct {
	IsEnabled    bool     `json:"is_enabled"`
	MonthlyLimit float64  `json:"monthly_limit"`
	UsedCredits  float64  `json:"used_credits"`
	Utilization  *float64 `json:"utilization"`
}

// UsageSnapshot is the parsed usage API response.
type UsageSnapshot struct {
	FiveHour       *RateLimitWindow `json:"five_hour"`
	SevenDay       *RateLimitWindow `json:"seven_day"`
	SevenDayOpus   *RateLimitWindow `json:"seven_day_opus"`
	SevenDaySonnet *RateLimitWindow `json:"seven_day_sonnet"`
	ExtraUsage     *ExtraUsage      `json:"extra_usage"`
}
