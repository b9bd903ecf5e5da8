package game

// Advance is the level progression state machine: a pure function from
// the current level and the turn's outcome to the next level and the
// terminal win flag. Level never moves past maxLevel; won is the
// terminal signal, reachable only by passing the final level. There is
// no path out of won except an explicit admin reset, which reinitializes
// the session entirely and lives outside this function.
func Advance(level int, passed bool, maxLevel int) (newLevel int, won bool) {
	if !passed {
		return level, false
	}
	if level < maxLevel {
		return level + 1, false
	}
	return maxLevel, true
}
