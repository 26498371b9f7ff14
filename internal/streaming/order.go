package streaming

import "github.com/Faultbox/roadtrain/pkg/grid"

// ChunkOrder returns every chunk within radius of the origin, nearest ring
// first. Each ring starts one step above the previous ring's last cell and
// walks right, down, left and up around the origin.
func ChunkOrder(radius int) []grid.ChunkCoord {
	if radius < 0 {
		return nil
	}
	total := (2*radius + 1) * (2*radius + 1)
	order := make([]grid.ChunkCoord, 0, total)

	cur := grid.ChunkCoord{}
	order = append(order, cur)
	emit := func(dx, dy, n int) {
		for i := 0; i < n && len(order) < total; i++ {
			cur = cur.Add(grid.Step{DX: dx, DY: dy})
			order = append(order, cur)
		}
	}

	for step := 2; len(order) < total; step += 2 {
		emit(0, 1, 1)
		emit(1, 0, step-1)
		emit(0, -1, step)
		emit(-1, 0, step)
		emit(0, 1, step)
	}
	return order
}

// InRange reports whether chunk lies within radius of center on both axes.
func InRange(center, chunk grid.ChunkCoord, radius int) bool {
	d := center.To(chunk)
	return d.DX >= -radius && d.DX <= radius && d.DY >= -radius && d.DY <= radius
}
