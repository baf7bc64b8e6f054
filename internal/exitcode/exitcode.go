package exitcode

const (
	Success         = 0
	UsageError      = 1
	DictionaryError = 2
	SourceError     = 3
	DBConnError     = 4
	SinkError       = 5
	PartialSuccess  = 6
)
