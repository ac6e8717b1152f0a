package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

func smells(m dsl.Matcher) {
	// Two guards with the same return can be merged with ||.
	m.Match(`if $c1 { return $ret }; if $c2 { return $ret }`).
		Report(`two consecutive guards return the same value; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { return $ret }`)

	m.Match(`if $c1 { continue }; if $c2 { continue }`).
		Report(`two consecutive continues; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { continue }`)

	m.Match(`for $*_ { for $*_ { $*_ } }`).
		Report(`nested for-loop; consider extracting inner loop logic or reducing algorithmic complexity`)
}

// stdout carries JSON-RPC frames in stdio mode; anything else written there
// corrupts the session.
func stdoutWrites(m dsl.Matcher) {
	m.Match(`fmt.Print($*_)`, `fmt.Printf($*_)`, `fmt.Println($*_)`, `os.Stdout.Write($*_)`).
		Where(!m.File().PkgPath.Matches(`/cmd/`)).
		Report(`do not write to stdout outside cmd/; log through slog (stderr)`)

	m.Match(`log.Print($*_)`, `log.Printf($*_)`, `log.Println($*_)`).
		Report(`use the injected *slog.Logger instead of the log package`)
}

// Tool code reads time through the injected clock so envelopes stay
// reproducible in tests.
func injectedClock(m dsl.Matcher) {
	m.Match(`time.Now()`).
		Where(m.File().PkgPath.Matches(`internal/domain/tool$`) &&
			m.File().Name.Matches(`^builtin.*\.go$`) &&
			!m.File().Name.Matches(`_test\.go$`)).
		Report(`use the dispatcher/executor Clock instead of time.Now() in tool code`)
}

// Envelopes must go through tool.MarshalEnvelope so both transports emit the
// same bytes.
func envelopeEncoding(m dsl.Matcher) {
	m.Import(`github.com/ABCLabsA/TRON-based-MCP-server-2.0/internal/domain/tool`)

	m.Match(`json.Marshal($e)`, `json.MarshalIndent($e, $*_)`).
		Where(m["e"].Type.Is(`*tool.Envelope`)).
		Report(`encode envelopes with tool.MarshalEnvelope`)
}
