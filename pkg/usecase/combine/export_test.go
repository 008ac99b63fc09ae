package combine

var (
	ParseResponseForTest = parseResponse
	UserMessageForTest   = userMessage
)
