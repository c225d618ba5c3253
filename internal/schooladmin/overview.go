package schooladmin

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Overview loads classes, teachers, students and stats together. Any failing
// read fails the whole call; there is no partial result.
func (c *Client) Overview(ctx context.Context, filter ClassFilter) (Overview, error) {
	var ov Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		classes, err := c.ListClasses(gctx, filter)
		ov.Classes = classes
		return err
	})
	g.Go(func() error {
		teachers, err := c.ListTeachers(gctx)
		ov.Teachers = teachers
		return err
	})
	g.Go(func() error {
		students, err := c.ListStudents(gctx)
		ov.Students = students
		return err
	})
	g.Go(func() error {
		stats, err := c.ClassStats(gctx)
		ov.Stats = stats
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return ov, nil
}
