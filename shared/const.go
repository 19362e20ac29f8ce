package shared

const (
	CredentialID = "credential_id"
	GameID       = "game_id"

	// TrialCode is exempt from expiry enforcement; used for previews and demos.
	TrialCode = "TEST2025"

	AnswerTypeFreeText       = "free_text"
	AnswerTypeMultipleChoice = "multiple_choice"

	// An empty tag binds an interstitial screen to the game intro.
	// ScreenTagEnd binds it to the post-game finale.
	ScreenTagIntro = ""
	ScreenTagEnd   = "__end__"

	ViewTypeInterstitial = "interstitial"
	ViewTypePuzzle       = "puzzle"
	ViewTypeCompletion   = "completion"

	UsageActionActivated = "activated"
)
