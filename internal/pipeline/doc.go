/*
Package pipeline runs the parallel tokenizer.

# Overview

A Pipeline starts one Producer per source and one Consumer per queue, all
at once, and waits for every one of them:

	source 0 ─┐                       ┌─ queue 0 ─ consumer 0 ─┐
	source 1 ─┼─ producers ─ Set ─────┼─ queue 1 ─ consumer 1 ─┼─ sinks
	source 2 ─┘   (claim + insert)    └─ queue 2 ─ consumer 2 ─┘

Producers read a line (line mode) or a byte (byte mode), pick a queue
by random probing or by their pinned index, and insert under that queue's
claim. Each producer releases the JobTracker exactly once when it stops.
A consumer stops only when its queue is empty and the tracker has reached
zero, so the last units queued are always drained.

# Failures

A task failure stays local to that task: a producer that cannot open its
source still releases the tracker, and a consumer whose sink fails keeps
popping and discards what it pops. Run returns every failure joined, each
wrapped in a *TaskError.

# Usage

	p, err := pipeline.New(pipeline.Config{
		Sources:  source.Indexed("lorem_ipsum", 4),
		Capacity: 256,
	}, pipeline.WithLogger(logger), pipeline.WithMetrics(metrics))
	if err != nil {
		return err
	}
	report, err := p.Run(ctx)
*/
package pipeline
