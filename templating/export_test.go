package templating

// StyleForTest builds a Style without validation so tests
// can reach the checks done by NewEngine.
func StyleForTest(prefix string, suffix string) Style {
	return Style{prefix: prefix, suffix: suffix}
}
