package domain

const (
	adaptWindow     = 5
	adaptMinAnswers = 3
	adaptUpAbove    = 0.8
	adaptDownBelow  = 0.4
)

// AdaptDifficulty returns the level after looking at the most recent answers.
// It moves at most one step and only once three answers are in the window.
func AdaptDifficulty(current Difficulty, history []AnswerResult) Difficulty {
	window := history
	if len(window) > adaptWindow {
		window = window[len(window)-adaptWindow:]
	}
	if len(window) < adaptMinAnswers {
		return current
	}

	correct := 0
	for _, r := range window {
		if r.WasCorrect {
			correct++
		}
	}
	accuracy := float64(correct) / float64(len(window))

	switch {
	case accuracy > adaptUpAbove:
		switch current {
		case DifficultyEasy:
			return DifficultyMedium
		case DifficultyMedium:
			return DifficultyHard
		}
	case accuracy < adaptDownBelow:
		switch current {
		case DifficultyHard:
			return DifficultyMedium
		case DifficultyMedium:
			return DifficultyEasy
		}
	}
	return current
}
