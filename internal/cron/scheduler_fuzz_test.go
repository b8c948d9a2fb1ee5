package cron

import "testing"

func FuzzParseSchedule(f *testing.F) {
	f.Add("*/5 * * * *")
	f.Add("0 0 * * *")
	f.Add("0 0 1 1 *")
	f.Add("* * * * *")
	f.Add("@every 10s")
	f.Add("invalid")
	f.Add("")
	f.Add("60 * * * *")
	f.Add("0 25 * * *")

	f.Fuzz(func(_ *testing.T, expr string) {
		// Must not panic. Errors are expected and acceptable.
		_ = ParseSchedule(expr)
	})
}
