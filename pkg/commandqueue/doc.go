// Package commandqueue runs tasks on named lanes with FIFO ordering.
//
// A lane is created on first use with a single slot, which makes it a
// strict serial queue: submissions from one chat user share a lane and
// therefore execute one at a time, in submission order, while other
// lanes proceed independently. Submit appends on the caller's
// goroutine, so submission order within a lane follows call order.
package commandqueue
