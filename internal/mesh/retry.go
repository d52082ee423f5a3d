package mesh

// RetryPolicy decides whether a link whose ICE transport failed should be
// renegotiated with an ICE restart. attempt counts failures on the link, from 1.
type RetryPolicy interface {
	ShouldRetry(peer string, attempt int) bool
}

// NoRetry leaves failed links alone.
type NoRetry struct{}

func (NoRetry) ShouldRetry(string, int) bool { return false }

// RetryUpTo restarts ICE at most n times per link.
type RetryUpTo int

func (n RetryUpTo) ShouldRetry(_ string, attempt int) bool { return attempt <= int(n) }
