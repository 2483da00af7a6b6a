package state

// DispositionTier maps a 0-100 NPC disposition score to the wording used in
// prompts and narration.
func DispositionTier(score int) string {
	switch {
	case score < 20:
		return "hostile"
	case score < 40:
		return "suspicious"
	case score < 60:
		return "neutral"
	case score < 80:
		return "friendly"
	default:
		return "very friendly"
	}
}

// StandingTier maps a -100..100 faction standing to the wording used in
// prompts and narration.
func StandingTier(standing int) string {
	switch {
	case standing < -50:
		return "hated"
	case standing < -20:
		return "disliked"
	case standing < 20:
		return "neutral"
	case standing < 50:
		return "liked"
	default:
		return "revered"
	}
}

// StandingPhrase maps a faction standing to the tier with its preposition,
// for sentences of the form "You are liked by the millers_guild".
func StandingPhrase(standing int) string {
	tier := StandingTier(standing)
	if tier == "neutral" {
		return "neutral with"
	}
	return tier + " by"
}
