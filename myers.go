package seqsync

import (
	"context"

	"github.com/cockroachdb/errors"
)

// match pairs an index in the old snapshot with an index in the new one.
type match struct {
	old, new int
}

// commonSubsequence returns the pairs of a longest common subsequence of a
// and b under the given equality, in increasing order. It is the greedy
// O((N+M)D) forward search from Myers' "An O(ND) Difference Algorithm and
// Its Variations", with a trace of every diagonal frontier kept for the
// backtrack, after trimming the common prefix and suffix.
//
// The context is checked once per edit distance step.
func commonSubsequence[T any](
	ctx context.Context, a, b []T, same func(x, y T) bool,
) ([]match, error) {
	prefix := 0
	for prefix < len(a) && prefix < len(b) && same(a[prefix], b[prefix]) {
		prefix++
	}
	suffix := 0
	for suffix < len(a)-prefix && suffix < len(b)-prefix &&
		same(a[len(a)-1-suffix], b[len(b)-1-suffix]) {
		suffix++
	}
	var res []match
	for i := 0; i < prefix; i++ {
		res = append(res, match{i, i})
	}
	mid, err := myers(ctx, a[prefix:len(a)-suffix], b[prefix:len(b)-suffix], same)
	if err != nil {
		return nil, err
	}
	for _, m := range mid {
		res = append(res, match{m.old + prefix, m.new + prefix})
	}
	for i := suffix; i > 0; i-- {
		res = append(res, match{len(a) - i, len(b) - i})
	}
	return res, nil
}

func myers[T any](ctx context.Context, a, b []T, same func(x, y T) bool) ([]match, error) {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return nil, nil
	}
	limit := n + m
	offset := limit + 1
	v := make([]int, 2*limit+3)
	// trace[d] holds the frontier for diagonals -d..d after step d.
	var trace [][]int
	final := -1
	for d := 0; d <= limit && final < 0; d++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "diff")
		}
		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
				x = v[offset+k+1]
			} else {
				x = v[offset+k-1] + 1
			}
			y := x - k
			for x < n && y < m && same(a[x], b[y]) {
				x++
				y++
			}
			v[offset+k] = x
			if x >= n && y >= m {
				final = d
			}
		}
		trace = append(trace, append([]int(nil), v[offset-d:offset+d+1]...))
	}
	if final < 0 {
		panic(errors.AssertionFailedf("myers search did not reach (%d,%d)", n, m))
	}

	frontier := func(d, k int) int {
		return trace[d][k+d]
	}
	var rev []match
	x, y := n, m
	for d := final; d > 0; d-- {
		k := x - y
		var prevK int
		if k == -d || (k != d && frontier(d-1, k-1) < frontier(d-1, k+1)) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}
		prevX := frontier(d-1, prevK)
		prevY := prevX - prevK
		for x > prevX && y > prevY {
			x--
			y--
			rev = append(rev, match{x, y})
		}
		x, y = prevX, prevY
	}
	for x > 0 && y > 0 {
		x--
		y--
		rev = append(rev, match{x, y})
	}
	res := make([]match, len(rev))
	for i := range rev {
		res[i] = rev[len(rev)-1-i]
	}
	return res, nil
}
