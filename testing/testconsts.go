package testing

// Seed users served by the fakeapi package.
const (
	TestUserAliceID = 1
	TestNameAlice   = "Alice"
	TestEmailAlice  = "alice@example.com"

	TestUserBobID = 2
	TestNameBob   = "Bob"
	TestEmailBob  = "bob@example.com"
)

// TestTraceParent is a valid W3C traceparent used where an incoming trace is simulated.
const TestTraceParent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
