// Package reviewqueue implements the optional Review Queue: a single-active
// FIFO gate that interposes between anchor generation and acceptance when
// human review is enabled.
package reviewqueue
