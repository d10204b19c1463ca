package assign

import "math"

// Hungarian solves the maximum-weight assignment for a rows×cols score matrix. Missing rows or
// columns are padded with zero scores, so every row is matched whenever cols ≥ rows. The result
// maps each row to its column, or -1 when the row was matched to padding.
func Hungarian(score [][]float64) []int {
	rows := len(score)
	if rows == 0 {
		return nil
	}
	cols := 0
	for _, r := range score {
		cols = max(cols, len(r))
	}
	n := max(rows, cols)

	// Minimize negated scores on the padded square; 1-indexed potentials.
	cost := func(i, j int) float64 {
		if i < rows && j < len(score[i]) {
			return -score[i][j]
		}
		return 0
	}
	u := make([]float64, n+1)
	v := make([]float64, n+1)
	p := make([]int, n+1) // p[j] = row matched to column j
	way := make([]int, n+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, n+1)
		used := make([]bool, n+1)
		for j := range minv {
			minv[j] = math.Inf(1)
		}
		for {
			used[j0] = true
			i0 := p[j0]
			delta := math.Inf(1)
			j1 := 0
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost(i0-1, j-1) - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	out := make([]int, rows)
	for i := range out {
		out[i] = -1
	}
	for j := 1; j <= n; j++ {
		i := p[j] - 1
		if i >= 0 && i < rows && j-1 < len(score[i]) {
			out[i] = j - 1
		}
	}
	return out
}
