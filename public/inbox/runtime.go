package inbox

// Runtime is the host agent's injection surface. The inbox is built against
// this narrow interface instead of a concrete LLM driver, the same way the
// teacher decouples its agent framework from a specific agent implementation
// behind a small runner interface.
type Runtime interface {
	// Inject delivers content as a new synthetic user turn.
	Inject(content string) error
	// InjectFollowUp is the retry path used when Inject fails once.
	InjectFollowUp(content string) error
}
