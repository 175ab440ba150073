package behavior

// PhraseTable maps mood -> category -> lines of speech. It is never mutated
// after the engine is built.
type PhraseTable map[Mood]map[Category][]string

// lastResortPhrase keeps RandomPhrase total even if validation was bypassed.
const lastResortPhrase = "..."

// lookup resolves a phrase list: the mood's category, then the mood's
// observing lines, then the default mood's observing lines. The second
// result reports which step answered (0, 1, 2, or 3 for the last resort).
func (t PhraseTable) lookup(mood, fallbackMood Mood, category Category) ([]string, int) {
	if lines := t[mood][category]; len(lines) > 0 {
		return lines, 0
	}
	if lines := t[mood][FallbackCategory]; len(lines) > 0 {
		return lines, 1
	}
	if lines := t[fallbackMood][FallbackCategory]; len(lines) > 0 {
		return lines, 2
	}
	return nil, 3
}
