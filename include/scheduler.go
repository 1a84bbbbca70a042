package include

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Stats counts scheduled and finished resolutions. Once a build finishes
// the two are equal.
type Stats struct {
	Spawned   int
	Completed int
}

// scheduler drains a worklist of include sites. Resolutions run on worker
// goroutines; discovery of new sites runs on the calling goroutine only,
// so node trees are never mutated concurrently.
type scheduler struct {
	limit int
	stats Stats
}

func (s *scheduler) run(ctx context.Context, root *node, resolve func(context.Context, *node), discover func(*node) []*node) error {
	g, gctx := errgroup.WithContext(ctx)
	done := make(chan *node)

	queue := []*node{root}
	inflight := 0
	for len(queue) > 0 || inflight > 0 {
		for len(queue) > 0 && inflight < s.limit {
			n := queue[0]
			queue = queue[1:]
			inflight++
			s.stats.Spawned++
			g.Go(func() error {
				resolve(gctx, n)
				done <- n
				return nil
			})
		}

		n := <-done
		inflight--
		s.stats.Completed++
		queue = append(queue, discover(n)...)
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
