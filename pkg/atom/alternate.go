package atom

// Alternate interleaves two pools into one practice sequence: A, B, A, B, …
// by index. When one pool runs out, the remaining items of the other pool
// continue consecutively in their original relative order. Atoms with an
// empty Native sentence are filtered before interleaving and never appear in
// the output. Pure and deterministic.
func Alternate(daily, dialogue []VerbalAtom) []VerbalAtom {
	daily = withContent(daily)
	dialogue = withContent(dialogue)

	result := make([]VerbalAtom, 0, len(daily)+len(dialogue))
	maxLen := max(len(daily), len(dialogue))
	for i := 0; i < maxLen; i++ {
		if i < len(daily) {
			result = append(result, daily[i])
		}
		if i < len(dialogue) {
			result = append(result, dialogue[i])
		}
	}
	return result
}

// Resequence splits a mixed list by sample pool and alternates the halves.
// Must be re-applied whenever the underlying pool changes (after merging
// generated atoms), and the result re-persisted.
func Resequence(list []VerbalAtom) []VerbalAtom {
	var daily, dialogue []VerbalAtom
	for _, a := range list {
		switch a.SamplePool {
		case PoolDialogue:
			dialogue = append(dialogue, a)
		default:
			daily = append(daily, a)
		}
	}
	return Alternate(daily, dialogue)
}

func withContent(list []VerbalAtom) []VerbalAtom {
	out := list[:0:0]
	for _, a := range list {
		if a.Native != "" {
			out = append(out, a)
		}
	}
	return out
}
