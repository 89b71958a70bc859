package registration

import (
	"regexp"
	"strconv"
)

var statusCodeRegex = regexp.MustCompile(`status:\s*(\d+)`)

// ExtractStatusCode pulls an HTTP status code out of an error's text, looking
// for the "status: <digits>" pattern persistence and transport errors carry.
// It returns 0 when no code is present, which callers report as "unknown".
func ExtractStatusCode(err error) int {
	if err == nil {
		return 0
	}
	match := statusCodeRegex.FindStringSubmatch(err.Error())
	if match == nil {
		return 0
	}
	code, convErr := strconv.Atoi(match[1])
	if convErr != nil {
		return 0
	}
	return code
}
