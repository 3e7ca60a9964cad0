package ecs

import "testing"

func TestCommandBufferPushAndDrain(t *testing.T) {
	b := newCommandBuffer(4)
	e := Entity{slot: 1, generation: 1}

	if err := b.push(Command{kind: cmdDestroy, entity: e}); err != nil {
		t.Fatalf("push: %v", err)
	}
	if b.Len() != 1 {
		t.Fatalf("expected 1 queued command, got %d", b.Len())
	}

	drained := b.drain()
	if len(drained) != 1 || drained[0].entity != e {
		t.Fatalf("unexpected drained commands: %v", drained)
	}
	if b.Len() != 0 {
		t.Fatalf("expected empty buffer after drain, got %d", b.Len())
	}
}

func TestCommandBufferOverflow(t *testing.T) {
	b := newCommandBuffer(2)
	e := Entity{slot: 1, generation: 1}

	if err := b.push(Command{kind: cmdDestroy, entity: e}); err != nil {
		t.Fatalf("push 1: %v", err)
	}
	if err := b.push(Command{kind: cmdDestroy, entity: e}); err != nil {
		t.Fatalf("push 2: %v", err)
	}
	if err := b.push(Command{kind: cmdDestroy, entity: e}); err == nil {
		t.Fatalf("expected DeferredQueueOverflowError on the third push")
	}
}

func TestCommandBufferDrainIsEmptyWhenIdle(t *testing.T) {
	b := newCommandBuffer(4)
	if drained := b.drain(); drained != nil {
		t.Fatalf("expected nil from draining an empty buffer, got %v", drained)
	}
}
