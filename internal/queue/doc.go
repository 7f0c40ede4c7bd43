/*
Package queue provides the bounded handoff layer of the tokenizer.

# Overview

Queue is a fixed-capacity circular FIFO with one mutex and two condition
variables. Insert blocks while the queue is full and PopWait blocks while
it is empty, so no item is ever dropped and no task spins.

Set holds N queues and an atomic claim flag per queue. Producers select a
queue by random probing:

	pick random i -> CAS claim[i] -> TryInsert -> release claim[i]
	      ^                |busy          |full
	      +----------------+--------------+   (up to ProbeLimit per round)

After a round without success the producer parks on the set until a pop
or a release changes it. Each consumer owns one index and pops with
PopWait, passing the job tracker's done channel as the stop signal.

# Usage

	set, _ := queue.NewSet[string](4, 256)
	idx, err := set.Insert(ctx, "a line")
	item, ok, err := set.PopWait(ctx, idx, tracker.Done())
*/
package queue
