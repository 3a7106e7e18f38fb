package main

// / Levenshtein distance between s1 and s2, giving up once it exceeds
// / max_edit_distance (0 means no limit).
func EditDistance(s1 string, s2 string, allow_replacements bool, max_edit_distance int) int {
	m := len(s1)
	n := len(s2)

	row := make([]int, n+1)
	for i := 1; i <= n; i++ {
		row[i] = i
	}

	for y := 1; y <= m; y++ {
		row[0] = y
		best_this_row := row[0]

		previous := y - 1
		for x := 1; x <= n; x++ {
			old_row := row[x]
			if allow_replacements {
				cost := 1
				if s1[y-1] == s2[x-1] {
					cost = 0
				}
				row[x] = min(previous+cost, min(row[x-1], row[x])+1)
			} else {
				if s1[y-1] == s2[x-1] {
					row[x] = previous
				} else {
					row[x] = min(row[x-1], row[x]) + 1
				}
			}
			previous = old_row
			best_this_row = min(best_this_row, row[x])
		}

		if max_edit_distance != 0 && best_this_row > max_edit_distance {
			return max_edit_distance + 1
		}
	}

	return row[n]
}
