package tracking

// Result is the verdict of one delivery attempt.
type Result int

const (
	// ResultSuccess means the event was accepted.
	ResultSuccess Result = iota
	// ResultFailure means the event was rejected and must not be resent.
	ResultFailure
	// ResultRetry means the attempt may succeed later.
	ResultRetry
)

func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultFailure:
		return "failure"
	default:
		return "retry"
	}
}

// Classify maps an HTTP status to a Result: 2xx succeed, 4xx fail
// permanently, anything else is retried.
func Classify(status int) Result {
	switch {
	case status >= 200 && status < 300:
		return ResultSuccess
	case status >= 400 && status < 500:
		return ResultFailure
	default:
		return ResultRetry
	}
}
