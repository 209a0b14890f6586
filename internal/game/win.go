package game

// Evaluate reports the winner for the given roster, or WinnerNone while the
// game continues. Eliminator extinction is checked before the outnumber rule,
// so an empty roster counts as a village win.
func Evaluate(roster []Player) Winner {
	eliminators, others := 0, 0
	for _, p := range roster {
		if !p.Alive {
			continue
		}
		if p.IsEliminator() {
			eliminators++
		} else {
			others++
		}
	}
	if eliminators == 0 {
		return WinnerVillage
	}
	if eliminators >= others {
		return WinnerEliminators
	}
	return WinnerNone
}

// TallyVotes resolves a plurality over votes (target id -> count). The maximum
// is found first, then every target sharing it is counted; two or more means a
// tie and no elimination. An empty tally is a tie with count 0.
func TallyVotes(votes map[int]int) (target int, count int, tie bool) {
	target = NoTarget
	for _, c := range votes {
		if c > count {
			count = c
		}
	}
	if count == 0 {
		return NoTarget, 0, true
	}
	leaders := 0
	for id, c := range votes {
		if c == count {
			leaders++
			target = id
		}
	}
	if leaders > 1 {
		return NoTarget, count, true
	}
	return target, count, false
}
